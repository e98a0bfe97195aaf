package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"welfare-workers/internal/common/config"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "applications_active_user_scheme"}

	assert.True(t, IsUniqueViolation(dup, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup), "applications_active_user_scheme"))
	assert.False(t, IsUniqueViolation(dup, "schemes_name_lower"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE applications SET status = 'approved'`)
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return errors.New("validation failed")
	})
	assert.EqualError(t, err, "validation failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestNewRedis_PoolSizing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RedisConfig
		pool    int
		minIdle int
	}{
		{"defaults", config.RedisConfig{Address: "localhost:6379"}, 10, 2},
		{"configured", config.RedisConfig{Address: "localhost:6379", PoolSize: 4, MinIdleConns: 1}, 4, 1},
		{"idle capped by pool", config.RedisConfig{Address: "localhost:6379", PoolSize: 3, MinIdleConns: 9}, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewRedis(tt.cfg)
			require.NoError(t, err)
			defer client.Close()

			opts := client.Client.Options()
			assert.Equal(t, tt.pool, opts.PoolSize)
			assert.Equal(t, tt.minIdle, opts.MinIdleConns)
		})
	}
}

func TestNewElasticsearch_EmptyAddress(t *testing.T) {
	_, err := NewElasticsearch(config.ElasticsearchConfig{})
	assert.Error(t, err)
}

func TestElasticsearchClient_PingRetriesUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL, MaxRetries: 2})
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
