package callapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
)

type UploadResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Message  string `json:"message"`
}

// UploadAudio forwards an audio file to the service as multipart field "file".
// A rejection comes back as *StatusError carrying the service's detail.
func (c *Client) UploadAudio(ctx context.Context, fileName, mimeType string, r io.Reader) (UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeAudioPart(mw, fileName, mimeType, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/upload-audio/"), pr)
	if err != nil {
		pr.Close()
		return UploadResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.send(nil, req, &result); err != nil {
		pr.CloseWithError(err)
		return UploadResult{}, err
	}
	return result, nil
}

func writeAudioPart(mw *multipart.Writer, fileName, mimeType string, r io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(fileName)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}
