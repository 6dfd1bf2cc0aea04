package googleauth

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"
)

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

// CallbackResult represents the query parameters of the OAuth redirect.
type CallbackResult struct {
	// Code is the authorization code from the provider.
	Code string

	// State is the state parameter to verify against the original request.
	State string

	// Error is the error code if the authorization failed.
	Error string

	// ErrorDescription is a human-readable error description.
	ErrorDescription string
}

// IsError returns true if the callback result represents an error.
func (r *CallbackResult) IsError() bool {
	return r.Error != ""
}

// CallbackServer is a temporary local HTTP server for receiving one OAuth
// redirect. It starts, waits for a single authoritative request on the
// callback path, then shuts down. It never outlives a sign-in attempt.
//
// Only the first request on the callback path that carries a "code" or
// "error" query parameter is treated as authoritative. Anything else
// (favicon fetches, browser retries, stray requests) is answered with a
// minimal 204 and has no effect on the flow.
type CallbackServer struct {
	host        string
	port        int
	path        string
	successHTML string

	server   *http.Server
	listener net.Listener
	resultCh chan *CallbackResult
	errorCh  chan error
	once     sync.Once
	stopOnce sync.Once
	baseURL  string
}

// NewCallbackServer creates a callback server for the given host, port and
// path. A port of 0 requests an OS-assigned ephemeral port. An empty path
// falls back to DefaultCallbackPath and an empty successHTML falls back to
// the embedded default page.
func NewCallbackServer(host string, port int, path, successHTML string) *CallbackServer {
	if host == "" {
		host = DefaultCallbackHost
	}
	if path == "" {
		path = DefaultCallbackPath
	}

	return &CallbackServer{
		host:        host,
		port:        port,
		path:        path,
		successHTML: successHTML,
		resultCh:    make(chan *CallbackResult, 1),
		errorCh:     make(chan error, 1),
	}
}

// Start binds the listener and begins serving. The server stops
// automatically when the context is cancelled. Returns the redirect URI to
// register in the authorization request.
//
// Binding always happens on 127.0.0.1; the advertised redirect URI uses the
// configured host name so that "localhost" redirect URIs keep working.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", &BindError{Addr: addr, Err: err}
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.baseURL = fmt.Sprintf("http://%s:%d", s.host, s.port)

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)
	if s.path != "/" {
		mux.HandleFunc("/", s.handleOther)
	}

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	// Monitor context for cancellation and stop the server when cancelled
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.RedirectURI(), nil
}

// WaitForCallback waits for the OAuth redirect, a server error, or context
// cancellation/timeout, whichever comes first. It delivers at most one
// result.
func (s *CallbackServer) WaitForCallback(ctx context.Context) (*CallbackResult, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errorCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handleCallback handles requests on the callback path.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// A request without a code or error parameter is not the provider
	// redirect; ignore it and keep waiting.
	if query.Get("code") == "" && query.Get("error") == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var handled bool
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})

	// Late duplicate (browser retry): the first result already won.
	if !handled {
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleOther answers everything outside the callback path (favicon and the
// like) without affecting the flow.
func (s *CallbackServer) handleOther(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// processCallback processes the authoritative redirect request.
// This is called exactly once via sync.Once.
func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	// Security headers for the page rendered in the user's browser
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	result := &CallbackResult{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	switch {
	case result.IsError():
		tmpl := template.Must(template.New("error").Parse(callbackErrorHTML))
		data := map[string]string{
			"Error":       result.Error,
			"Description": result.ErrorDescription,
		}
		if err := tmpl.Execute(w, data); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	case s.successHTML != "":
		fmt.Fprint(w, s.successHTML)
	default:
		tmpl := template.Must(template.New("success").Parse(callbackSuccessHTML))
		if err := tmpl.Execute(w, map[string]string{}); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	select {
	case s.resultCh <- result:
	default:
	}

	// Give the browser a moment to read the response, then tear down.
	go func() {
		time.Sleep(1 * time.Second)
		s.Stop()
	}()
}

// Stop shuts down the callback server and releases the bound port. It is
// idempotent and safe to call from multiple goroutines.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// RedirectURI returns the full redirect URI for the authorization request.
func (s *CallbackServer) RedirectURI() string {
	return s.baseURL + s.path
}

// Port returns the port the server is listening on.
func (s *CallbackServer) Port() int {
	return s.port
}
