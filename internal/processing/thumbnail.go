package processing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/dmitrymomot/filebox/internal/registry"
	"github.com/dmitrymomot/filebox/pkg/storage"
)

// thumbnailEdge is the bounding box for generated thumbnails. Aspect ratio
// is preserved, so the result fits within thumbnailEdge on both axes.
const thumbnailEdge = 256

const thumbnailContentType = "image/jpeg"

// ThumbnailTask renders a small JPEG preview for image uploads and stores it
// next to the original. The task is best-effort: exhausting its retries
// leaves an audit trail but never fails the file.
type ThumbnailTask struct {
	Deps
}

func (t *ThumbnailTask) Name() string { return TaskThumbnail }

func (t *ThumbnailTask) Handle(ctx context.Context, p Payload) error {
	if !storage.IsImage(p.ContentType) {
		return nil
	}

	body, err := t.Broker.Get(ctx, p.Key)
	if err != nil {
		return t.fail(ctx, p, TaskThumbnail, false, err)
	}
	defer body.Close()

	src, _, err := image.Decode(body)
	if err != nil {
		return t.fail(ctx, p, TaskThumbnail, false, fmt.Errorf("decode image %s: %w", p.Key, err))
	}

	thumb := scaleToFit(src, thumbnailEdge)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return t.fail(ctx, p, TaskThumbnail, false, fmt.Errorf("encode thumbnail: %w", err))
	}

	key := storage.ThumbnailKey(p.OrganizationID.String(), p.FileID.String())
	if err := t.Broker.Put(ctx, key, &buf, int64(buf.Len()), thumbnailContentType); err != nil {
		return t.fail(ctx, p, TaskThumbnail, false, err)
	}

	return t.complete(ctx, p, registry.TaskResult{
		Task:         TaskThumbnail,
		ThumbnailKey: &key,
	})
}

// scaleToFit shrinks src to fit within edge x edge using nearest-neighbor
// sampling. Images already within bounds are returned as-is.
func scaleToFit(src image.Image, edge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= edge && h <= edge {
		return src
	}

	dw, dh := edge, edge
	if w > h {
		dh = max(1, h*edge/w)
	} else {
		dw = max(1, w*edge/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy := b.Min.Y + y*h/dh
		for x := 0; x < dw; x++ {
			sx := b.Min.X + x*w/dw
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
