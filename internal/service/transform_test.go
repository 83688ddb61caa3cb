package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docgate/internal/config"
	"docgate/internal/model"
	"docgate/internal/storage"
	storeMocks "docgate/internal/storage/mocks"
	fixtures "docgate/internal/testutil"
	"docgate/internal/transform"
)

func newLocalStore(t *testing.T) storage.Storage {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	store, err := storage.NewLocal(config.ScratchConfig{Dir: t.TempDir()}, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func upload(name string, data []byte) model.Upload {
	return model.Upload{Reader: bytes.NewReader(data), Filename: name, Size: int64(len(data))}
}

func TestTransformService_Transform(t *testing.T) {
	store := newLocalStore(t)
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	svc := NewTransformService(store, transform.DefaultRegistry(), log, WithMetrics(metrics))

	pdf := fixtures.PDF(t, "one", "two")
	res, ws, err := svc.Transform(context.Background(), model.Request{
		Kind: model.KindCompress,
		File: upload("../../etc/report.pdf", pdf),
	})
	require.NoError(t, err)
	require.NotNil(t, ws)

	assert.Equal(t, "Optimized_report.pdf", res.DownloadName)
	assert.True(t, strings.HasPrefix(res.Path, ws.Dir()))
	assert.Equal(t, 1, store.Live())

	require.NoError(t, ws.Release())
	assert.Equal(t, 0, store.Live())
	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.total.WithLabelValues("compress", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))
	assert.Equal(t, "transform finished", hook.LastEntry().Message)
	assert.Equal(t, "compress", hook.LastEntry().Data["kind"])
	assert.Equal(t, ws.Dir(), hook.LastEntry().Data["dir"])
}

func TestTransformService_ValidationBeforeWorkspace(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	log, _ := logtest.NewNullLogger()
	svc := NewTransformService(mStore, transform.DefaultRegistry(), log, WithMetrics(metrics))

	tests := []struct {
		name    string
		req     model.Request
		wantErr error
	}{
		{
			name:    "missing file",
			req:     model.Request{Kind: model.KindCompress},
			wantErr: transform.ErrMissingFile,
		},
		{
			name:    "missing watermark text",
			req:     model.Request{Kind: model.KindWatermark, File: upload("a.pdf", []byte("x"))},
			wantErr: transform.ErrMissingParam,
		},
		{
			name:    "missing password",
			req:     model.Request{Kind: model.KindDecrypt, File: upload("a.pdf", []byte("x"))},
			wantErr: transform.ErrMissingParam,
		},
		{
			name:    "unknown kind",
			req:     model.Request{Kind: "shred", File: upload("a.pdf", []byte("x"))},
			wantErr: transform.ErrUnsupportedKind,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ws, err := svc.Transform(context.Background(), tt.req)
			assert.Nil(t, res)
			assert.Nil(t, ws)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, transform.IsValidation(err))
		})
	}

	// Acquire must never have been reached.
	mStore.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.total.WithLabelValues("watermark", "validation")))
}

func TestTransformService_ReleasesOnFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("engine failure", func(t *testing.T) {
		store := newLocalStore(t)
		log, _ := logtest.NewNullLogger()
		svc := NewTransformService(store, transform.DefaultRegistry(), log)

		_, ws, err := svc.Transform(ctx, model.Request{
			Kind: model.KindCompress,
			File: upload("broken.pdf", []byte("definitely not a pdf")),
		})
		require.Error(t, err)
		assert.Nil(t, ws)
		assert.Equal(t, transform.Internal, transform.KindOf(err))
		assert.Equal(t, 0, store.Live())
	})

	t.Run("save failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mWs := new(storeMocks.MockWorkspace)
		mStore.On("Acquire", mock.Anything, "compress").Return(mWs, nil)
		mWs.On("Save", "input_a.pdf", mock.Anything).Return("", int64(0), errors.New("disk full"))
		mWs.On("Release").Return(nil).Once()

		log, _ := logtest.NewNullLogger()
		svc := NewTransformService(mStore, transform.DefaultRegistry(), log)

		_, ws, err := svc.Transform(ctx, model.Request{Kind: model.KindCompress, File: upload("a.pdf", []byte("x"))})
		require.Error(t, err)
		assert.Nil(t, ws)
		assert.Contains(t, err.Error(), "disk full")
		mWs.AssertExpectations(t)
	})

	t.Run("acquire failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Acquire", mock.Anything, "compress").Return(nil, storage.ErrClosed)

		log, _ := logtest.NewNullLogger()
		svc := NewTransformService(mStore, transform.DefaultRegistry(), log)

		_, ws, err := svc.Transform(ctx, model.Request{Kind: model.KindCompress, File: upload("a.pdf", []byte("x"))})
		assert.ErrorIs(t, err, storage.ErrClosed)
		assert.Nil(t, ws)
		mStore.AssertExpectations(t)
	})
}

func TestTransformService_WrongPassword(t *testing.T) {
	store := newLocalStore(t)
	log, _ := logtest.NewNullLogger()
	svc := NewTransformService(store, transform.DefaultRegistry(), log)
	ctx := context.Background()

	res, ws, err := svc.Transform(ctx, model.Request{
		Kind:   model.KindEncrypt,
		File:   upload("doc.pdf", fixtures.PDF(t, "page")),
		Params: model.Params{Password: "right"},
	})
	require.NoError(t, err)
	locked, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	require.NoError(t, ws.Release())

	_, ws, err = svc.Transform(ctx, model.Request{
		Kind:   model.KindDecrypt,
		File:   upload("doc.pdf", locked),
		Params: model.Params{Password: "wrong"},
	})
	assert.Nil(t, ws)
	assert.True(t, transform.IsAuth(err))
	assert.Equal(t, 0, store.Live())
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
