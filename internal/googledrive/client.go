// Package googledrive backs two concerns with one Drive client: overflow
// uploads of large artifacts and the remote history object.
package googledrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/castpost/castpost/internal/history"
)

type Client struct {
	service *drive.Service
}

// NewClient builds a Drive client from an OAuth client secret file and a
// previously issued user token. Minting the token is an interactive,
// one-time step done outside this process.
func NewClient(ctx context.Context, credentialsPath, tokenPath string) (*Client, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials %s: %w", credentialsPath, err)
	}
	conf, err := google.ConfigFromJSON(secret, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	token, err := readToken(tokenPath)
	if err != nil {
		return nil, err
	}
	service, err := drive.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{service: service}, nil
}

// Upload stores the artifact in Drive, opens it to anyone with the link,
// and returns the share link.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer f.Close()

	created, err := c.service.Files.
		Create(&drive.File{Name: filepath.Base(path)}).
		Media(f).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %s to drive: %w", path, err)
	}

	_, err = c.service.Permissions.
		Create(created.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("share drive file %s: %w", created.Id, err)
	}
	return ShareLink(created.Id), nil
}

// ShareLink returns the public view link for a Drive file id.
func ShareLink(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view?usp=sharing", fileID)
}

// ReadObject fetches the content of the named Drive file, satisfying
// history.ObjectBackend. A missing object maps to history.ErrNotFound.
func (c *Client) ReadObject(ctx context.Context, name string) ([]byte, error) {
	id, err := c.findByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("drive object %s: %w", name, history.ErrNotFound)
	}
	res, err := c.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download drive object %s: %w", name, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read drive object %s: %w", name, err)
	}
	return data, nil
}

// WriteObject replaces the named Drive file's content, creating it on
// first use.
func (c *Client) WriteObject(ctx context.Context, name string, data []byte) error {
	id, err := c.findByName(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		_, err = c.service.Files.
			Create(&drive.File{Name: name}).
			Media(bytes.NewReader(data)).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("create drive object %s: %w", name, err)
		}
		return nil
	}
	_, err = c.service.Files.
		Update(id, &drive.File{}).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update drive object %s: %w", name, err)
	}
	return nil
}

func (c *Client) findByName(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(name, "'", "\\'"))
	list, err := c.service.Files.
		List().
		Q(query).
		Fields("files(id)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("look up drive object %s: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func readToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drive token %s: %w", path, err)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("parse drive token %s: %w", path, err)
	}
	return token, nil
}
