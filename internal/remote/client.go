package remote

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quaynav/quay/internal/logging"
	"github.com/quaynav/quay/internal/model"
)

var (
	// ErrNotConfigured signals the expected steady state when no remote
	// credential is on file. Not an error condition for background sync.
	ErrNotConfigured = errors.New("remote store not configured")
	// ErrUnavailable covers network and store failures, distinct from
	// both "not configured" and "not found".
	ErrUnavailable = errors.New("remote store unavailable")
	// ErrNotFound is returned when a named archive does not exist remotely
	ErrNotFound = errors.New("remote archive not found")
)

// CredentialSource supplies the decrypted remote credential, or (nil, nil)
// when none is configured. Implemented by vault.CredentialStore.
type CredentialSource interface {
	Load() (*model.RemoteCredential, error)
}

// Client mirrors archives to a WebDAV store
type Client struct {
	creds CredentialSource
	dir   string // remote collection name under the base URL
	http  *http.Client
	log   *logging.ComponentLogger

	mu      sync.Mutex
	ensured string // dir URL already known to exist
}

func NewClient(creds CredentialSource, dir string, log *logging.ComponentLogger) *Client {
	return &Client{
		creds: creds,
		dir:   dir,
		http:  &http.Client{Timeout: 5 * time.Minute},
		log:   log,
	}
}

// load fetches the credential, mapping "none configured" to ErrNotConfigured.
// Decryption failures pass through untouched so they stay distinguishable.
func (c *Client) load() (*model.RemoteCredential, error) {
	cred, err := c.creds.Load()
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.URL == "" {
		return nil, ErrNotConfigured
	}
	return cred, nil
}

func (c *Client) dirURL(cred *model.RemoteCredential) string {
	return strings.TrimRight(cred.URL, "/") + "/" + url.PathEscape(c.dir)
}

func (c *Client) archiveURL(cred *model.RemoteCredential, name string) string {
	return c.dirURL(cred) + "/" + url.PathEscape(name)
}

func (c *Client) do(ctx context.Context, cred *model.RemoteCredential, method, rawURL string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.SetBasicAuth(cred.Username, cred.Password)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// ensureDir creates the remote backup collection once per client lifetime.
// "Already exists" answers from the store are swallowed; anything else
// propagates.
func (c *Client) ensureDir(ctx context.Context, cred *model.RemoteCredential) error {
	dirURL := c.dirURL(cred)

	c.mu.Lock()
	ensured := c.ensured == dirURL
	c.mu.Unlock()
	if ensured {
		return nil
	}

	resp, err := c.do(ctx, cred, "MKCOL", dirURL+"/", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK, http.StatusNoContent:
		// created
	case http.StatusMethodNotAllowed, http.StatusMovedPermanently:
		// collection already exists
	default:
		return fmt.Errorf("%w: create remote directory: status %d", ErrUnavailable, resp.StatusCode)
	}

	c.mu.Lock()
	c.ensured = dirURL
	c.mu.Unlock()
	return nil
}

// Upload mirrors a local archive to the remote store
func (c *Client) Upload(ctx context.Context, arch model.Archive) error {
	cred, err := c.load()
	if err != nil {
		return err
	}
	if err := c.ensureDir(ctx, cred); err != nil {
		return err
	}

	f, err := os.Open(arch.Path)
	if err != nil {
		return fmt.Errorf("open archive for upload: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.archiveURL(cred, arch.Name), f)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.SetBasicAuth(cred.Username, cred.Password)
	req.ContentLength = arch.SizeBytes
	req.Header.Set("Content-Type", "application/zip")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: upload %s: status %d", ErrUnavailable, arch.Name, resp.StatusCode)
	}
	c.log.Info("uploaded %s (%.2f MB)", arch.Name, arch.SizeMB)
	return nil
}

// multistatus is the subset of the PROPFIND response we care about
type multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []response `xml:"response"`
}

type response struct {
	Href     string     `xml:"href"`
	Propstat []propstat `xml:"propstat"`
}

type propstat struct {
	Prop prop `xml:"prop"`
}

type prop struct {
	ContentLength int64        `xml:"getcontentlength"`
	LastModified  string       `xml:"getlastmodified"`
	ResourceType  resourceType `xml:"resourcetype"`
}

type resourceType struct {
	Collection *struct{} `xml:"collection"`
}

// List returns the archives present on the remote store, newest first.
// A missing remote directory means "no backups yet", not an error.
func (c *Client) List(ctx context.Context) ([]model.Archive, error) {
	cred, err := c.load()
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, cred, "PROPFIND", c.dirURL(cred)+"/", nil, map[string]string{"Depth": "1"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []model.Archive{}, nil
	}
	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list: status %d", ErrUnavailable, resp.StatusCode)
	}

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, fmt.Errorf("%w: parse list response: %v", ErrUnavailable, err)
	}

	archives := make([]model.Archive, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		name, err := url.PathUnescape(path.Base(strings.TrimRight(r.Href, "/")))
		if err != nil || !strings.HasSuffix(name, ".zip") {
			continue
		}
		var p prop
		if len(r.Propstat) > 0 {
			p = r.Propstat[0].Prop
		}
		if p.ResourceType.Collection != nil {
			continue
		}
		arch := model.Archive{
			Name:      name,
			Prefix:    model.PrefixOf(name),
			SizeBytes: p.ContentLength,
			SizeMB:    float64(int64(float64(p.ContentLength)/(1024*1024)*100+0.5)) / 100,
		}
		if t, terr := time.Parse(time.RFC1123, p.LastModified); terr == nil {
			arch.ModifiedAt = t
			arch.CreatedAt = t
		}
		archives = append(archives, arch)
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].ModifiedAt.After(archives[j].ModifiedAt)
	})
	return archives, nil
}

// Download streams a named remote archive. The caller closes the reader.
func (c *Client) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	cred, err := c.load()
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, cred, http.MethodGet, c.archiveURL(cred, name), nil, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: download %s: status %d", ErrUnavailable, name, resp.StatusCode)
	}
	return resp.Body, nil
}

// Delete removes a named archive from the remote store
func (c *Client) Delete(ctx context.Context, name string) error {
	cred, err := c.load()
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, cred, http.MethodDelete, c.archiveURL(cred, name), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: delete %s: status %d", ErrUnavailable, name, resp.StatusCode)
	}
	return nil
}
