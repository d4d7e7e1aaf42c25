package schedulersvc

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purgerStub struct {
	n   int
	err error
}

func (p purgerStub) PurgeExpiredTokens(context.Context) (int, error) { return p.n, p.err }

type observerStub struct{ total int }

func (o *observerStub) ObserveTokensPurged(n int) { o.total += n }

type loggerStub struct{ infos, errs []string }

func (l *loggerStub) Debug(string, ...interface{})       {}
func (l *loggerStub) Info(msg string, _ ...interface{})  { l.infos = append(l.infos, msg) }
func (l *loggerStub) Warn(string, ...interface{})        {}
func (l *loggerStub) Error(msg string, _ ...interface{}) { l.errs = append(l.errs, msg) }
func (l *loggerStub) Fatal(string, ...interface{})       {}

func TestScheduler_purgeTokens(t *testing.T) {
	tests := []struct {
		name      string
		purger    purgerStub
		wantTotal int
		wantInfos int
		wantErrs  int
	}{
		{"purged", purgerStub{n: 3}, 3, 1, 0},
		{"nothing to purge", purgerStub{}, 0, 0, 0},
		{"store failure", purgerStub{err: errors.New("down")}, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(loggerStub)
			observer := new(observerStub)
			s := New(logger, time.Second)

			s.purgeTokens(tt.purger, observer)
			assert.Equal(t, tt.wantTotal, observer.total)
			assert.Len(t, logger.infos, tt.wantInfos)
			assert.Len(t, logger.errs, tt.wantErrs)
		})
	}
}

func TestScheduler_AddTokenPurge(t *testing.T) {
	s := New(new(loggerStub), time.Second)
	require.NoError(t, s.AddTokenPurge("@every 10m", purgerStub{}, nil))
	assert.Error(t, s.AddTokenPurge("not a schedule", purgerStub{}, nil))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
