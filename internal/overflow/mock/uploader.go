package mock

import "context"

type Uploader struct {
	Link     string
	Err      error
	Uploaded []string
}

func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	_ = ctx
	u.Uploaded = append(u.Uploaded, path)
	if u.Err != nil {
		return "", u.Err
	}
	if u.Link != "" {
		return u.Link, nil
	}
	return "https://drive.example.com/shared/" + path, nil
}
