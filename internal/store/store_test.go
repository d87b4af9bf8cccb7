package store_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/sordino/internal/config"
	"github.com/farcloser/sordino/internal/store"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return mr, client
}

func drivers(t *testing.T) map[string]func(t *testing.T) store.Store {
	t.Helper()

	return map[string]func(t *testing.T) store.Store{
		"memory": func(*testing.T) store.Store { return store.NewMemory() },
		"file": func(t *testing.T) store.Store {
			t.Helper()

			st, err := store.NewFile(t.TempDir())
			require.NoError(t, err)

			return st
		},
		"redis": func(t *testing.T) store.Store {
			t.Helper()

			_, client := setupTestRedis(t)

			return store.NewRedis(client, "test:")
		},
	}
}

func increment(current []byte) ([]byte, error) {
	count := 0

	if current != nil {
		var err error
		if count, err = strconv.Atoi(string(current)); err != nil {
			return nil, err
		}
	}

	return []byte(strconv.Itoa(count + 1)), nil
}

func TestStoreContract(t *testing.T) {
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)

			t.Cleanup(func() { _ = st.Close() })

			_, err := st.Get(ctx, "ratelimit:tts:abc")
			require.ErrorIs(t, err, store.ErrNotFound)

			var seen []byte

			require.NoError(t, st.Update(ctx, "ratelimit:tts:abc", func(current []byte) ([]byte, error) {
				seen = current

				return []byte(`{"timestamps":[1]}`), nil
			}))
			assert.Nil(t, seen, "absent records are handed over as nil")

			record, err := st.Get(ctx, "ratelimit:tts:abc")
			require.NoError(t, err)
			assert.JSONEq(t, `{"timestamps":[1]}`, string(record))

			require.NoError(t, st.Update(ctx, "ratelimit:tts:abc", func([]byte) ([]byte, error) { return nil, nil }))

			record, err = st.Get(ctx, "ratelimit:tts:abc")
			require.NoError(t, err)
			assert.JSONEq(t, `{"timestamps":[1]}`, string(record), "nil result leaves the record untouched")

			boom := errors.New("boom")
			err = st.Update(ctx, "ratelimit:tts:abc", func([]byte) ([]byte, error) { return []byte("x"), boom })
			require.ErrorIs(t, err, boom)

			record, err = st.Get(ctx, "ratelimit:tts:abc")
			require.NoError(t, err)
			assert.JSONEq(t, `{"timestamps":[1]}`, string(record))

			require.NoError(t, st.Delete(ctx, "ratelimit:tts:abc"))
			require.NoError(t, st.Delete(ctx, "ratelimit:tts:abc"), "deleting twice is fine")

			_, err = st.Get(ctx, "ratelimit:tts:abc")
			require.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestStoreSerializesUpdatesPerKey(t *testing.T) {
	const writers = 8

	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)

			var wg sync.WaitGroup

			for range writers {
				wg.Add(1)

				go func() {
					defer wg.Done()

					assert.NoError(t, st.Update(ctx, "usage:tts", increment))
					assert.NoError(t, st.Update(ctx, "usage:stt", increment))
				}()
			}

			wg.Wait()

			for _, key := range []string{"usage:tts", "usage:stt"} {
				record, err := st.Get(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, strconv.Itoa(writers), string(record), key)
			}
		})
	}
}

func TestFileStoreKeepsKeysInsideDirectory(t *testing.T) {
	dir := t.TempDir()

	st, err := store.NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, st.Update(context.Background(), "circuit:../../etc/tts", increment))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	assert.Contains(t, names, "circuit%3A..%2F..%2Fetc%2Ftts.json")
}

func TestRedisStoreUsesPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	st := store.NewRedis(client, "sordino:")

	require.NoError(t, st.Update(context.Background(), "circuit:tts", increment))

	value, err := mr.Get("sordino:circuit:tts")
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}

func TestOpen(t *testing.T) {
	mr, _ := setupTestRedis(t)

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.StoreConfig{Driver: config.DriverMemory}},
		{name: "file", cfg: config.StoreConfig{Driver: config.DriverFile, Path: t.TempDir()}},
		{name: "redis", cfg: config.StoreConfig{Driver: config.DriverRedis, RedisURL: "redis://" + mr.Addr()}},
		{name: "bad redis url", cfg: config.StoreConfig{Driver: config.DriverRedis, RedisURL: "://"}, wantErr: true},
		{name: "unknown", cfg: config.StoreConfig{Driver: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := store.Open(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.NoError(t, st.Update(context.Background(), "k", increment))
			require.NoError(t, st.Close())
		})
	}
}
