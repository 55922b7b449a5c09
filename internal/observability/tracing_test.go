package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "agora-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "op", attribute.Int("n", 1))
	assert.NotNil(t, ctx)
	span.SetError(errors.New("boom"))
	span.SetError(nil)
	span.End()
}

func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(VotesCast.WithLabelValues("inserted"))
	RecordVote("inserted")
	assert.Equal(t, before+1, testutil.ToFloat64(VotesCast.WithLabelValues("inserted")))

	before = testutil.ToFloat64(FriendTransitions.WithLabelValues("invited"))
	RecordFriendTransition("invited")
	assert.Equal(t, before+1, testutil.ToFloat64(FriendTransitions.WithLabelValues("invited")))
}
