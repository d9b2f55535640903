package app

import (
	"context"
	"crypto/ed25519"

	firebase "firebase.google.com/go/v4"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	v3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/api/option"

	"github.com/code-payments/eventflow/pkg/eventflow/identity"
	firebase_identity "github.com/code-payments/eventflow/pkg/eventflow/identity/firebase"
	jwt_identity "github.com/code-payments/eventflow/pkg/eventflow/identity/jwt"
	memory_identity "github.com/code-payments/eventflow/pkg/eventflow/identity/memory"
	"github.com/code-payments/eventflow/pkg/eventflow/remote"
	etcd_remote "github.com/code-payments/eventflow/pkg/eventflow/remote/etcd"
	firebase_remote "github.com/code-payments/eventflow/pkg/eventflow/remote/firebase"
	memory_remote "github.com/code-payments/eventflow/pkg/eventflow/remote/memory"
)

// backends holds the collaborators built from config, along with whatever
// must be released on shutdown
type backends struct {
	remote   remote.Store
	identity identity.Provider

	closers []func() error
}

func (b *backends) close() error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.closers = nil
	return firstErr
}

func newBackends(ctx context.Context, config Config) (*backends, error) {
	b := &backends{}

	var firebaseApp *firebase.App
	if config.RemoteBackend == RemoteBackendFirebase || config.IdentityProvider == IdentityProviderFirebase {
		var err error
		firebaseApp, err = newFirebaseApp(ctx, config)
		if err != nil {
			return nil, err
		}
	}

	var err error
	b.remote, err = b.newRemoteStore(ctx, config, firebaseApp)
	if err != nil {
		b.close()
		return nil, err
	}

	b.identity, err = newIdentityProvider(ctx, config, firebaseApp)
	if err != nil {
		b.close()
		return nil, err
	}

	return b, nil
}

func newFirebaseApp(ctx context.Context, config Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if len(config.FirebaseCredentials) > 0 {
		credentials, err := LoadFile(config.FirebaseCredentials)
		if err != nil {
			return nil, errors.Wrap(err, "error loading firebase credentials")
		}
		opts = append(opts, option.WithCredentialsJSON(credentials))
	}

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   config.FirebaseProjectId,
		DatabaseURL: config.FirebaseDatabaseURL,
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing firebase")
	}
	return firebaseApp, nil
}

func (b *backends) newRemoteStore(ctx context.Context, config Config, firebaseApp *firebase.App) (remote.Store, error) {
	switch config.RemoteBackend {
	case RemoteBackendMemory:
		return memory_remote.New(), nil
	case RemoteBackendFirebase:
		if len(config.FirebaseDatabaseURL) == 0 {
			return nil, errors.New("firebase database url is required")
		}

		client, err := firebaseApp.Database(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error initializing firebase database client")
		}
		return firebase_remote.New(client, config.RemoteRoot, firebase_remote.WithEnvConfigs()), nil
	case RemoteBackendEtcd:
		if len(config.EtcdEndpoints) == 0 {
			return nil, errors.New("at least one etcd endpoint is required")
		}

		client, err := v3.New(v3.Config{
			Endpoints:   config.EtcdEndpoints,
			DialTimeout: config.EtcdDialTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "error initializing etcd client")
		}
		b.closers = append(b.closers, client.Close)

		return etcd_remote.New(client, config.RemoteRoot), nil
	default:
		return nil, errors.Errorf("unsupported remote backend %q", config.RemoteBackend)
	}
}

func newIdentityProvider(ctx context.Context, config Config, firebaseApp *firebase.App) (identity.Provider, error) {
	switch config.IdentityProvider {
	case IdentityProviderStatic:
		return memory_identity.New(config.StaticUserId), nil
	case IdentityProviderFirebase:
		client, err := firebaseApp.Auth(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error initializing firebase auth client")
		}

		provider := firebase_identity.New(client)
		if len(config.SessionToken) > 0 {
			if _, err := provider.SignIn(ctx, config.SessionToken); err != nil {
				return nil, err
			}
		}
		return provider, nil
	case IdentityProviderJWT:
		publicKey, err := decodePublicKey(config.SessionPublicKey)
		if err != nil {
			return nil, err
		}

		provider := jwt_identity.New(publicKey)
		if len(config.SessionToken) > 0 {
			if _, err := provider.SignIn(config.SessionToken); err != nil {
				return nil, err
			}
		}
		return provider, nil
	default:
		return nil, errors.Errorf("unsupported identity provider %q", config.IdentityProvider)
	}
}

func decodePublicKey(encoded string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "invalid session public key encoding")
	}

	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("session public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}
