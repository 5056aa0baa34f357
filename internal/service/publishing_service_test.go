package service

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"strings"
	"testing"

	"storefront/internal/entitlement"
	"storefront/internal/model"
	"storefront/internal/pubsub"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFile(t *testing.T, name string) *UploadFile {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := range 40 {
		for y := range 20 {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &UploadFile{Name: name, ContentType: "image/png", Body: bytes.NewReader(buf.Bytes())}
}

type publishFixture struct {
	catalog *fakeCatalog
	blobs   *fakeBlobs
	queue   *fakeQueue
	events  *fakeEvents
	metrics *recordingMetrics
	svc     PublishingService
}

func newPublishFixture() *publishFixture {
	f := &publishFixture{
		catalog: newFakeCatalog(),
		blobs:   &fakeBlobs{},
		queue:   &fakeQueue{},
		events:  &fakeEvents{},
		metrics: &recordingMetrics{},
	}
	f.svc = NewPublishingService(
		PublishConfig{MastersBucket: "masters", PreviewsBucket: "previews", MetadataQueue: "metadata_queue"},
		f.catalog, f.blobs, f.queue, f.events, f.metrics, zerolog.Nop(),
	)
	return f
}

var assetIDPattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func TestPublishPattern(t *testing.T) {
	f := newPublishFixture()
	master := &UploadFile{Name: "Summer Pack.zip", ContentType: "application/zip", Body: bytes.NewReader([]byte("PK-master"))}

	asset, err := f.svc.Publish(context.Background(), PublishRequest{
		AssetType: entitlement.AssetPattern,
		Title:     "  Summer Pack ",
		Category:  "Floral",
		Master:    master,
		Preview:   pngFile(t, "summer.png"),
	})
	require.NoError(t, err)
	assert.Regexp(t, assetIDPattern, asset.ID)
	assert.Equal(t, "Summer Pack", asset.Title)

	require.Len(t, f.blobs.uploads, 2)
	preview, stored := f.blobs.uploads[0], f.blobs.uploads[1]
	assert.Equal(t, "previews", preview.Bucket)
	assert.Equal(t, "image/jpeg", preview.ContentType)
	assert.Regexp(t, `^[0-9a-z]{10}-wm_summer\.png\.jpg$`, preview.Key)
	assert.Equal(t, []byte{0xFF, 0xD8}, preview.Body[:2])

	assert.Equal(t, "masters", stored.Bucket)
	assert.Regexp(t, `^[0-9a-z]{10}-Summer_Pack\.zip$`, stored.Key)
	assert.Equal(t, []byte("PK-master"), stored.Body)

	p := f.catalog.patterns[asset.ID]
	require.NotNil(t, p)
	assert.Equal(t, model.PatternStatusPublished, p.Status)
	assert.Equal(t, []string{"AI", "EPS", "JPG", "PNG"}, p.Formats)
	assert.True(t, strings.HasSuffix(p.Thumbnail, "/previews/"+preview.Key))
	assert.True(t, strings.HasSuffix(p.DownloadURL, "/masters/"+stored.Key))

	require.Len(t, f.queue.sent["metadata_queue"], 1)
	var job MetadataJob
	require.NoError(t, json.Unmarshal(f.queue.sent["metadata_queue"][0], &job))
	assert.Equal(t, MetadataJob{AssetID: asset.ID, AssetType: "pattern", Title: "Summer Pack", Category: "Floral"}, job)

	assert.Equal(t, []string{pubsub.EventAssetPublished}, f.events.types())
	assert.Equal(t, []bool{true}, f.metrics.publishes)
}

func TestPublishMotionVideo(t *testing.T) {
	f := newPublishFixture()

	asset, err := f.svc.Publish(context.Background(), PublishRequest{
		AssetType:   entitlement.AssetMotion,
		Title:       "Wave Loop",
		Description: "Slow ocean loop.",
		Tags:        []string{"loop", "ocean"},
		Duration:    "0:10",
		Resolution:  "3840x2160",
		FPS:         "30",
		IsLooping:   true,
		Master:      &UploadFile{Name: "wave.mov", Body: bytes.NewReader([]byte("mov"))},
		Preview:     pngFile(t, "wave.png"),
	})
	require.NoError(t, err)

	m := f.catalog.motion[asset.ID]
	require.NotNil(t, m)
	assert.Equal(t, "MOV", m.Format)
	assert.Equal(t, m.Thumbnail, m.PreviewURL)
	assert.True(t, m.IsLooping)
	assert.False(t, m.HasAlpha)
	assert.Equal(t, "application/octet-stream", f.blobs.uploads[1].ContentType)
	assert.Empty(t, f.queue.sent, "copy was supplied")
}

func TestPublishImageMasterIsItsOwnPreview(t *testing.T) {
	f := newPublishFixture()
	master := pngFile(t, "Tile.PNG")
	raw, err := io.ReadAll(master.Body)
	require.NoError(t, err)

	asset, err := f.svc.Publish(context.Background(), PublishRequest{
		AssetType: entitlement.AssetPattern,
		Title:     "Tile",
		Master:    master,
	})
	require.NoError(t, err)

	require.Len(t, f.blobs.uploads, 2)
	preview, stored := f.blobs.uploads[0], f.blobs.uploads[1]
	assert.Equal(t, "previews", preview.Bucket)
	assert.Regexp(t, `^[0-9a-z]{10}-wm_Tile\.PNG\.jpg$`, preview.Key)
	assert.Equal(t, []byte{0xFF, 0xD8}, preview.Body[:2])
	assert.Equal(t, "masters", stored.Bucket)
	assert.Equal(t, raw, stored.Body, "master is stored unmodified")
	assert.NotNil(t, f.catalog.patterns[asset.ID])
}

func TestPublishRejectsIncompleteInput(t *testing.T) {
	cases := map[string]PublishRequest{
		"no title":             {AssetType: entitlement.AssetPattern, Master: &UploadFile{Body: bytes.NewReader(nil)}, Preview: &UploadFile{Body: bytes.NewReader(nil)}},
		"no master":            {AssetType: entitlement.AssetPattern, Title: "x", Preview: &UploadFile{Body: bytes.NewReader(nil)}},
		"no preview":           {AssetType: entitlement.AssetPattern, Title: "x", Master: &UploadFile{Name: "x.zip", Body: bytes.NewReader(nil)}},
		"no preview for video": {AssetType: entitlement.AssetMotion, Title: "x", Master: &UploadFile{Name: "x.mp4", Body: bytes.NewReader(nil)}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			f := newPublishFixture()
			_, err := f.svc.Publish(context.Background(), req)
			assert.ErrorIs(t, err, ErrMissingPublishInput)
			assert.Empty(t, f.blobs.uploads)
			assert.Equal(t, []bool{false}, f.metrics.publishes)
		})
	}
}

func TestPublishWatermarkFailureBlocks(t *testing.T) {
	f := newPublishFixture()
	_, err := f.svc.Publish(context.Background(), PublishRequest{
		AssetType: entitlement.AssetPattern,
		Title:     "Broken",
		Master:    &UploadFile{Name: "a.zip", Body: bytes.NewReader([]byte("zip"))},
		Preview:   &UploadFile{Name: "a.png", Body: bytes.NewReader([]byte("not an image"))},
	})
	assert.ErrorIs(t, err, ErrWatermarkFailed)
	assert.Empty(t, f.blobs.uploads)
	assert.Empty(t, f.catalog.patterns)
}

func TestPublishInsertFailureCleansUp(t *testing.T) {
	f := newPublishFixture()
	f.catalog.err = errStore

	_, err := f.svc.Publish(context.Background(), PublishRequest{
		AssetType: entitlement.AssetPattern,
		Title:     "Tile",
		Master:    &UploadFile{Name: "a.zip", Body: bytes.NewReader([]byte("zip"))},
		Preview:   pngFile(t, "a.png"),
	})
	assert.ErrorIs(t, err, errStore)
	require.Len(t, f.blobs.deletes, 2)
	assert.Equal(t, "previews", f.blobs.deletes[0].Bucket)
	assert.Equal(t, "masters", f.blobs.deletes[1].Bucket)
	assert.Empty(t, f.events.types())
}

func TestDeleteAsset(t *testing.T) {
	f := newPublishFixture()
	asset, err := f.svc.Publish(context.Background(), PublishRequest{
		AssetType: entitlement.AssetPattern,
		Title:     "Tile",
		Master:    &UploadFile{Name: "a.zip", Body: bytes.NewReader([]byte("zip"))},
		Preview:   pngFile(t, "a.png"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), entitlement.AssetPattern, strings.ToLower(asset.ID)))
	assert.Empty(t, f.catalog.patterns)
	require.Len(t, f.blobs.deletes, 2)
	assert.Equal(t, f.blobs.uploads[1].Key, f.blobs.deletes[0].Key)
	assert.Equal(t, f.blobs.uploads[0].Key, f.blobs.deletes[1].Key)
	assert.Equal(t, []string{pubsub.EventAssetPublished, pubsub.EventAssetDeleted}, f.events.types())

	assert.ErrorIs(t, f.svc.Delete(context.Background(), entitlement.AssetPattern, asset.ID), ErrAssetNotFound)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), entitlement.AssetMotion, "NOPE"), ErrAssetNotFound)
}

func TestNewAssetID(t *testing.T) {
	seen := map[string]bool{}
	for range 200 {
		id := newAssetID()
		assert.Regexp(t, assetIDPattern, id)
		seen[id] = true
	}
	assert.Len(t, seen, 200)
}
