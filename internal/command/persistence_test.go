package command

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/session"
)

type fakePersist struct {
	saveErr       error
	bgSaveCalls   int32
	bgRewriteCall int32
}

func (f *fakePersist) Save() error { return f.saveErr }
func (f *fakePersist) BackgroundSave() {
	atomic.AddInt32(&f.bgSaveCalls, 1)
}
func (f *fakePersist) BackgroundRewriteAOF() {
	atomic.AddInt32(&f.bgRewriteCall, 1)
}

func TestSaveSucceedsAndPropagatesError(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	fp := &fakePersist{}
	reply := m.Dispatch(ctx, sess, nil, nil, fp, "SAVE", nil)
	require.False(t, reply.IsError())

	fp.saveErr = errors.New("disk full")
	reply = m.Dispatch(ctx, sess, nil, nil, fp, "SAVE", nil)
	assert.True(t, reply.IsError())
}

func TestBgSaveAndBgRewriteAOFReturnImmediately(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()
	fp := &fakePersist{}

	reply := m.Dispatch(ctx, sess, nil, nil, fp, "BGSAVE", nil)
	require.False(t, reply.IsError())

	reply = m.Dispatch(ctx, sess, nil, nil, fp, "BGREWRITEAOF", nil)
	require.False(t, reply.IsError())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fp.bgSaveCalls) == 1 && atomic.LoadInt32(&fp.bgRewriteCall) == 1
	}, time.Second, 10*time.Millisecond)
}
