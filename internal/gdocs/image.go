package gdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
)

// passthrough are the formats the Docs API embeds as-is.
var passthrough = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// normalizeImage reads path and returns bytes the Docs API accepts, with
// their MIME type and upload name. Other formats are decoded and
// re-encoded as PNG.
func normalizeImage(path string) (data []byte, mimeType, name string, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, "", "", err
	}
	name = filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := passthrough[ext]; ok {
		return data, mt, name, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", "", fmt.Errorf("decode %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", "", fmt.Errorf("encode %s as png: %w", format, err)
	}
	return buf.Bytes(), "image/png", strings.TrimSuffix(name, filepath.Ext(name)) + ".png", nil
}

// InsertImage uploads the file to Drive, makes it readable by link and
// embeds it at offset, sized in points.
func (c *Client) InsertImage(ctx context.Context, docID, path string, offset, width, height int) error {
	if _, err := os.Stat(path); err != nil {
		return &docs.APIError{Op: "insert_image", DocID: docID, Err: fmt.Errorf("%w: %s", docs.ErrImageNotFound, path)}
	}
	data, mimeType, name, err := normalizeImage(path)
	if err != nil {
		return &docs.APIError{Op: "insert_image", DocID: docID, Err: err}
	}

	fileID, err := c.upload(ctx, docID, name, mimeType, data)
	if err != nil {
		return err
	}
	if err := c.shareAnyone(ctx, docID, fileID); err != nil {
		return err
	}

	return c.batchUpdate(ctx, "insert_image", docID, map[string]any{
		"insertInlineImage": map[string]any{
			"location": map[string]int{"index": offset},
			"uri":      "https://drive.google.com/uc?id=" + url.QueryEscape(fileID),
			"objectSize": map[string]any{
				"width":  map[string]any{"magnitude": width, "unit": "PT"},
				"height": map[string]any{"magnitude": height, "unit": "PT"},
			},
		},
	})
}

type uploadMetadata struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// upload stores an image in Drive with a multipart upload and returns
// its file ID.
func (c *Client) upload(ctx context.Context, docID, name, mimeType string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	meta, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return "", err
	}
	metaJSON, err := json.Marshal(uploadMetadata{Name: name, MimeType: mimeType})
	if err != nil {
		return "", err
	}
	if _, err := meta.Write(metaJSON); err != nil {
		return "", err
	}
	media, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mimeType}})
	if err != nil {
		return "", err
	}
	if _, err := media.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	u := c.opts.UploadURL + "/drive/v3/files?uploadType=multipart&fields=id"
	var fileID string
	err = c.call(ctx, c.opts.MediaPolicy, "upload_image", docID, func(ctx context.Context) error {
		var resp struct {
			ID string `json:"id"`
		}
		if err := c.send(ctx, http.MethodPost, u, "multipart/related; boundary="+mw.Boundary(), body.Bytes(), &resp); err != nil {
			return err
		}
		if resp.ID == "" {
			return &docs.APIError{Op: "upload_image", DocID: docID, Err: fmt.Errorf("upload response did not include a file id")}
		}
		fileID = resp.ID
		return nil
	})
	return fileID, err
}

func (c *Client) shareAnyone(ctx context.Context, docID, fileID string) error {
	u := fmt.Sprintf("%s/drive/v3/files/%s/permissions", c.opts.DriveURL, url.PathEscape(fileID))
	return c.call(ctx, c.opts.MediaPolicy, "share_image", docID, func(ctx context.Context) error {
		return c.sendJSON(ctx, http.MethodPost, u, map[string]string{"type": "anyone", "role": "reader"}, nil)
	})
}
