package ghstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/common"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var Logger = logger.GetLogger("remote")

const (
	mediaTypeJSON = "application/vnd.github+json"
	mediaTypeRaw  = "application/vnd.github.raw+json"
	apiVersion    = "2022-11-28"
)

// contentItem is one object of the contents API (file or directory entry)
type contentItem struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Sha      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding,omitempty"`
	Content  string `json:"content,omitempty"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	Sha     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type writeResponse struct {
	Content *contentItem `json:"content"`
}

// Store is a remote.IRemoteStore persisting documents to a GitHub repository
type Store struct {
	config  common.ClientConfig
	client  *http.Client
	timeout time.Duration
}

// NewGitHubStore creates a new GitHub remote. A missing token, owner or repository
// is reported as RetCConfigError.
func NewGitHubStore(config common.ClientConfig) (*Store, error) {
	config = config.WithDefaults()
	if config.Token == "" {
		return nil, remote.NewError(remote.RetCConfigError, "", "no GitHub token configured")
	}
	if config.Owner == "" || config.Repo == "" {
		return nil, remote.NewError(remote.RetCConfigError, "", "GitHub owner and repository are required")
	}
	if _, err := url.Parse(config.APIBase); err != nil {
		return nil, &remote.Error{Code: remote.RetCConfigError, Msg: "invalid api url", Err: err}
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Store{
		config:  config,
		client:  client,
		timeout: time.Duration(config.TimeoutSecond) * time.Second,
	}, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// contentsURL builds the url of path in the contents API.
// withRef adds the branch as query parameter (only used for reads).
func (s *Store) contentsURL(path string, withRef bool) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.config.APIBase, url.PathEscape(s.config.Owner), url.PathEscape(s.config.Repo), strings.Join(segments, "/"))
	if withRef && s.config.Branch != "" {
		u += "?ref=" + url.QueryEscape(s.config.Branch)
	}
	return u
}

// do sends a single request bounded by the configured timeout.
// The returned body is fully read, the status is returned as is.
func (s *Store) do(ctx context.Context, method, u, accept string, body any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// statusError maps a non success http status to a remote error.
// Conflicts are only reported for writes (409 stale sha, 422 missing sha).
func statusError(path string, status int, body []byte, write bool) error {
	switch {
	case status == http.StatusNotFound:
		return remote.NewError(remote.RetCNotFound, path, "object does not exist")
	case write && (status == http.StatusConflict || status == http.StatusUnprocessableEntity):
		return &remote.Error{Code: remote.RetCConflict, Status: status, Path: path, Msg: apiMessage(body)}
	default:
		return &remote.Error{Code: remote.RetCTransportError, Status: status, Path: path, Msg: apiMessage(body)}
	}
}

// apiMessage extracts the "message" field of a GitHub error response
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// decodeContent decodes the base64 content of a file, GitHub wraps it every 60 characters
func decodeContent(encoded string) ([]byte, error) {
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(encoded)
	return base64.StdEncoding.DecodeString(clean)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// --------------------------------------------------------------------------
// Interface Methods (docu see remote/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Fetch(ctx context.Context, path string) (remote.Document, remote.VersionToken, error) {
	status, body, err := s.do(ctx, http.MethodGet, s.contentsURL(path, true), mediaTypeJSON, nil)
	if err != nil {
		return nil, "", remote.NewTransportError(path, status, err)
	}
	if !isSuccess(status) {
		return nil, "", statusError(path, status, body, false)
	}

	var item contentItem
	if err := json.Unmarshal(body, &item); err != nil {
		// directories are returned as array
		return nil, "", remote.NewError(remote.RetCInvalidDocument, path, "path is not a file")
	}
	if item.Type != "file" {
		return nil, "", remote.NewError(remote.RetCInvalidDocument, path, "path is not a file")
	}

	var content []byte
	switch item.Encoding {
	case "base64":
		content, err = decodeContent(item.Content)
		if err != nil {
			return nil, "", &remote.Error{Code: remote.RetCTransportError, Path: path, Msg: "invalid base64 content", Err: err}
		}
	case "none", "":
		// files above 1MB are only delivered as raw media type
		Logger.Debugf("Fetching %s (%d bytes) as raw content", path, item.Size)
		status, content, err = s.do(ctx, http.MethodGet, s.contentsURL(path, true), mediaTypeRaw, nil)
		if err != nil {
			return nil, "", remote.NewTransportError(path, status, err)
		}
		if !isSuccess(status) {
			return nil, "", statusError(path, status, content, false)
		}
	default:
		return nil, "", remote.NewError(remote.RetCTransportError, path, "unsupported encoding "+item.Encoding)
	}

	return remote.Document(content), remote.VersionToken(item.Sha), nil
}

func (s *Store) Put(ctx context.Context, path string, doc remote.Document, token remote.VersionToken) (remote.VersionToken, error) {
	message := "Create " + path
	if token != "" {
		message = "Update " + path
	}

	req := writeRequest{
		Message: remote.MessageFrom(ctx, message),
		Content: base64.StdEncoding.EncodeToString(doc),
		Sha:     string(token),
		Branch:  s.config.Branch,
	}

	status, body, err := s.do(ctx, http.MethodPut, s.contentsURL(path, false), mediaTypeJSON, req)
	if err != nil {
		return "", remote.NewTransportError(path, status, err)
	}
	if !isSuccess(status) {
		return "", statusError(path, status, body, true)
	}

	var resp writeResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Content == nil {
		return "", &remote.Error{Code: remote.RetCTransportError, Status: status, Path: path, Msg: "malformed write response", Err: err}
	}
	return remote.VersionToken(resp.Content.Sha), nil
}

func (s *Store) Remove(ctx context.Context, path string, token remote.VersionToken) error {
	req := writeRequest{
		Message: remote.MessageFrom(ctx, "Delete "+path),
		Sha:     string(token),
		Branch:  s.config.Branch,
	}

	status, body, err := s.do(ctx, http.MethodDelete, s.contentsURL(path, false), mediaTypeJSON, req)
	if err != nil {
		return remote.NewTransportError(path, status, err)
	}
	if !isSuccess(status) {
		return statusError(path, status, body, true)
	}
	return nil
}

func (s *Store) List(ctx context.Context, dir string) ([]remote.Entry, error) {
	status, body, err := s.do(ctx, http.MethodGet, s.contentsURL(dir, true), mediaTypeJSON, nil)
	if err != nil {
		return nil, remote.NewTransportError(dir, status, err)
	}
	if !isSuccess(status) {
		return nil, statusError(dir, status, body, false)
	}

	var items []contentItem
	if err := json.Unmarshal(body, &items); err != nil {
		// a single object means dir is a file
		return nil, remote.NewError(remote.RetCNotFound, dir, "path is not a directory")
	}

	entries := make([]remote.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, remote.Entry{
			Path:  item.Path,
			Name:  item.Name,
			Token: remote.VersionToken(item.Sha),
			IsDir: item.Type == "dir",
			Size:  item.Size,
		})
	}
	return entries, nil
}

func (s *Store) ListTree(ctx context.Context, root string) ([]remote.Entry, error) {
	return remote.WalkTree(ctx, s, root)
}

// Ping reads the repository itself which fails if the token grants no access
func (s *Store) Ping(ctx context.Context) error {
	u := fmt.Sprintf("%s/repos/%s/%s", s.config.APIBase, url.PathEscape(s.config.Owner), url.PathEscape(s.config.Repo))
	status, body, err := s.do(ctx, http.MethodGet, u, mediaTypeJSON, nil)
	if err != nil {
		return remote.NewTransportError(s.config.Repository(), status, err)
	}
	if !isSuccess(status) {
		return &remote.Error{Code: remote.RetCTransportError, Status: status, Path: s.config.Repository(), Msg: apiMessage(body)}
	}
	Logger.Infof("Connected to GitHub repository %s", s.Name())
	return nil
}

func (s *Store) Name() string {
	if s.config.Branch == "" {
		return s.config.Repository()
	}
	return s.config.Repository() + "@" + s.config.Branch
}
