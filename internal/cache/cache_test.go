package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cotlens/internal/domain/combine"
)

type payload struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

func TestCache_GetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client)

	mock.ExpectGet("cotlens:bias:CL:0.7:0.3:70:10").RedisNil()

	var out payload
	found, err := c.Get(context.Background(), BiasKey("CL", combine.DefaultConfig()), &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_SetThenGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client)

	value := payload{Score: 78, Label: "Strongly Bullish"}
	encoded := []byte(`{"score":78,"label":"Strongly Bullish"}`)

	mock.ExpectSet("cotlens:bias:CL:0.7:0.3:70:10", encoded, 15*time.Minute).SetVal("OK")
	require.NoError(t, c.Set(context.Background(), BiasKey("CL", combine.DefaultConfig()), value, 15*time.Minute))

	mock.ExpectGet("cotlens:bias:CL:0.7:0.3:70:10").SetVal(string(encoded))

	var out payload
	found, err := c.Get(context.Background(), BiasKey("CL", combine.DefaultConfig()), &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_CorruptEntryBehavesLikeMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client)

	mock.ExpectGet("cotlens:seasonality:GC:2025-08").SetVal("{not json")

	var out payload
	found, err := c.Get(context.Background(), SeasonalityKey("GC", time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBiasKey_DistinguishesConfigs(t *testing.T) {
	custom := combine.DefaultConfig()
	custom.CotWeight = 0.5
	custom.SeasonalityWeight = 0.5

	assert.NotEqual(t, BiasKey("CL", combine.DefaultConfig()), BiasKey("CL", custom))
}
