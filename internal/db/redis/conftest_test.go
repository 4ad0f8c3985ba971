package redis

import (
	"errors"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/taarya/internal/db"
)

// newMockStore returns a Store over a gomock rueidis client.
func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return &Store{client: c}, c
}

// commandIs matches any command whose first words equal words.
func commandIs(words ...string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool {
		if len(cmd) < len(words) {
			return false
		}
		for i, w := range words {
			if cmd[i] != w {
				return false
			}
		}
		return true
	})
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
