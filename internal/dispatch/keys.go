package dispatch

import (
	"fmt"
	"math/rand"
	"time"
)

type keyKind string

const (
	collectionKey keyKind = "CL"
	cardKey       keyKind = "CR"
)

const keyLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateKey builds a public entity key: a hex stamp derived from the
// current time, a random letter and the kind suffix, e.g.
// K-5f3a9c21-d-CL. Collision odds are accepted as in the original key
// scheme; the (user_id, key) uniqueness constraint catches the rest.
func generateKey(kind keyKind) string {
	stamp := time.Now().Unix() * int64(10+rand.Intn(10))
	letter := keyLetters[rand.Intn(len(keyLetters))]
	return fmt.Sprintf("K-%x-%c-%s", stamp, letter, kind)
}

// clampPageLevel keeps a page level inside 0 <= level < pages for the
// current item count, collapsing to page zero when the list is empty.
func clampPageLevel(level, count, perPage int) int {
	if level <= 0 || count <= 0 {
		return 0
	}
	pages := count / perPage
	if count%perPage != 0 {
		pages++
	}
	if level >= pages {
		return pages - 1
	}
	return level
}
