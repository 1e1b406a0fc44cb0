//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/cardsmith/internal/api/handlers"
	"github.com/cloo-solutions/cardsmith/internal/extract"
	"github.com/cloo-solutions/cardsmith/internal/jobs"
	"github.com/cloo-solutions/cardsmith/internal/preprocess"
	"github.com/cloo-solutions/cardsmith/internal/repository"
	"github.com/cloo-solutions/cardsmith/internal/server"
	"github.com/cloo-solutions/cardsmith/internal/service"
	"github.com/cloo-solutions/cardsmith/internal/storage"
	"github.com/cloo-solutions/cardsmith/internal/testutil"
)

// E2ETestEnv holds the containers, server and worker of one test run.
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	S3Client     *storage.S3Client
	ServerURL    string
	ServerCloser func()
	Worker       *jobs.Worker
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts Postgres and RustFS, then the API server with its
// preprocess worker.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "test-sources",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.ServerURL, env.ServerCloser = env.startServer(port)

	return env
}

// Cleanup releases all resources.
func (e *E2ETestEnv) Cleanup() {
	if e.Worker != nil {
		e.Worker.Stop()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// Reset empties every table between scenarios sharing one environment.
func (e *E2ETestEnv) Reset() {
	if err := testutil.TruncateAll(e.Ctx, e.Pool); err != nil {
		e.T.Fatalf("failed to reset database: %v", err)
	}
}

// BuildCLI builds the cardsmith binary into a temporary directory.
func (e *E2ETestEnv) BuildCLI() {
	tmpDir, err := os.MkdirTemp("", "cardsmith-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "cardsmith"), "./cmd/cardsmith")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build cardsmith: %v\n%s", err, out)
	}
}

// RunCLI runs the cardsmith binary against the test server.
func (e *E2ETestEnv) RunCLI(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "cardsmith"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), fmt.Sprintf("CARDSMITH_API_URL=%s", e.ServerURL))
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// HTTPError carries the status of a failed request.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	return e.do(req)
}

func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

// Upload posts a multipart file to /documents/upload.
func (e *E2ETestEnv) Upload(filename string, content []byte, subject string) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if subject != "" {
		if err := mw.WriteField("subject", subject); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+"/documents/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func (e *E2ETestEnv) do(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: apiResp.Error}
	}

	return &apiResp, nil
}

// DocumentStatus is the subset of GET /documents/{id} the tests read.
type DocumentStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Error     string `json:"error"`
	SourceURL string `json:"source_url"`
	Job       *struct {
		Status  string `json:"status"`
		Retries int    `json:"retries"`
	} `json:"job"`
}

// WaitForDocument polls until the document leaves the pending and
// processing states.
func (e *E2ETestEnv) WaitForDocument(id string, timeout time.Duration) *DocumentStatus {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := e.Get("/documents/" + id)
		if err != nil {
			e.T.Fatalf("failed to get document %s: %v", id, err)
		}
		var doc DocumentStatus
		if err := json.Unmarshal(resp.Data, &doc); err != nil {
			e.T.Fatalf("failed to parse document: %v", err)
		}
		if doc.Status == "completed" || doc.Status == "failed" {
			return &doc
		}
		time.Sleep(200 * time.Millisecond)
	}
	e.T.Fatalf("document %s not processed within %v", id, timeout)
	return nil
}

func (e *E2ETestEnv) startServer(port int) (string, func()) {
	pipeline, err := preprocess.NewPipeline(preprocess.DefaultConfig(), preprocess.DefaultKeywordLibrary(), preprocess.DefaultCostTable())
	if err != nil {
		e.T.Fatalf("failed to build pipeline: %v", err)
	}

	documentRepo := repository.NewDocumentRepository(e.Pool)
	jobRepo := repository.NewPreprocessJobRepository(e.Pool)
	resultRepo := repository.NewResultRepository(e.Pool)

	documentSvc := service.NewDocumentService(documentRepo, jobRepo, resultRepo, pipeline, extract.New(false)).
		WithTxRunner(repository.NewTxRunner(e.Pool)).
		WithStorage(e.S3Client)

	e.Worker = jobs.NewWorker("preprocess", jobs.NewPreprocessWorker(jobRepo, documentSvc), 200*time.Millisecond)
	go e.Worker.Start(e.Ctx)

	router := server.NewRouter(server.RouterConfig{
		PreprocessHandler: handlers.NewPreprocessHandler(service.NewPreprocessService(pipeline)),
		DocumentHandler:   handlers.NewDocumentHandler(documentSvc),
		Health:            e.Pool,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
