package firebase

import (
	"crypto/rand"
	"sync"
	"time"
)

// Push IDs are generated locally, the same way the client SDKs do. They are
// 20 characters: 8 encode the creation time in milliseconds, 12 are random.
// IDs generated within the same millisecond increment the random part so
// lexicographic order matches creation order.
const pushChars = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

type pushIdGenerator struct {
	mu         sync.Mutex
	now        func() time.Time
	lastMillis int64
	lastRandom [12]byte
}

func newPushIdGenerator() *pushIdGenerator {
	return &pushIdGenerator{
		now: time.Now,
	}
}

func (g *pushIdGenerator) next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	millis := g.now().UnixMilli()
	duplicate := millis == g.lastMillis
	g.lastMillis = millis

	var id [20]byte
	for i := 7; i >= 0; i-- {
		id[i] = pushChars[millis%64]
		millis /= 64
	}

	if !duplicate {
		var entropy [12]byte
		if _, err := rand.Read(entropy[:]); err != nil {
			return "", err
		}
		for i := range entropy {
			g.lastRandom[i] = entropy[i] % 64
		}
	} else {
		// Carry the increment through the random digits
		i := 11
		for ; i >= 0 && g.lastRandom[i] == 63; i-- {
			g.lastRandom[i] = 0
		}
		if i >= 0 {
			g.lastRandom[i]++
		}
	}

	for i := 0; i < 12; i++ {
		id[8+i] = pushChars[g.lastRandom[i]]
	}
	return string(id[:]), nil
}
