// Package etcdtest runs throwaway etcd containers for integration tests.
package etcdtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	image   = "quay.io/coreos/etcd"
	version = "v3.5.13"

	clientPort = "2379/tcp"

	// containers outliving a crashed test run are reaped by docker
	maxContainerLifetime = 2 * time.Minute
)

// StartEtcd runs a single node etcd in docker and returns a client once the
// node serves reads. teardown closes the client and removes the container,
// and is safe to call even when err is set.
func StartEtcd(pool *dockertest.Pool) (client *clientv3.Client, teardown func(), err error) {
	teardown = func() {}

	resource, err := runContainer(pool)
	if err != nil {
		return nil, teardown, err
	}

	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"type":      "etcdtest",
		"container": resource.Container.ID,
	})

	purge := func() {
		if err := pool.Purge(resource); err != nil {
			log.WithError(err).Warn("failed to purge etcd container")
		}
	}

	client, err = clientv3.New(clientv3.Config{
		Endpoints:   []string{"localhost:" + resource.GetPort(clientPort)},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		purge()
		return nil, teardown, errors.Wrap(err, "error creating etcd client")
	}

	teardown = func() {
		_ = client.Close()
		purge()
	}

	if err := waitReady(pool, client); err != nil {
		return nil, teardown, err
	}

	log.Debug("etcd container ready")
	return client, teardown, nil
}

func runContainer(pool *dockertest.Pool) (*dockertest.Resource, error) {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: image,
		Tag:        version,
		Env: []string{
			"ALLOW_NONE_AUTHENTICATION=true",
			"ETCD_LISTEN_CLIENT_URLS=http://0.0.0.0:2379",
			"ETCD_ADVERTISE_CLIENT_URLS=http://0.0.0.0:2379",
		},
	}, func(hostConfig *docker.HostConfig) {
		hostConfig.AutoRemove = true
		hostConfig.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, errors.Wrap(err, "error starting etcd container")
	}

	// Expire only fails when the container is already gone
	_ = resource.Expire(uint(maxContainerLifetime.Seconds()))
	return resource, nil
}

func waitReady(pool *dockertest.Pool, client *clientv3.Client) error {
	err := pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, err := client.Get(ctx, "/etcdtest-ready")
		return err
	})
	return errors.Wrap(err, "error waiting for etcd to serve reads")
}

// RandomRoot returns a unique key prefix so tests sharing a container do not
// observe each other's keys
func RandomRoot() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("/etcd-test-%s", hex.EncodeToString(b[:]))
}
