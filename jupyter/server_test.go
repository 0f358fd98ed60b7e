package jupyter_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/kernelhub/config"
	"github.com/tailored-agentic-units/kernelhub/jupyter"
	"github.com/tailored-agentic-units/kernelhub/messaging"
)

const testToken = "secret"

// fakeServer emulates the parts of the Jupyter Server API the client uses.
// Every frame is broadcast to all sockets of the kernel, as the real server
// does.
type fakeServer struct {
	t *testing.T

	mu       sync.Mutex
	kernels  map[string]jupyter.KernelModel
	sockets  map[string][]*fakeSocket
	restarts []string
	received []*messaging.Message
}

type fakeSocket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *fakeSocket) write(msg *messaging.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteJSON(msg)
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{
		t:       t,
		kernels: make(map[string]jupyter.KernelModel),
		sockets: make(map[string][]*fakeSocket),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/kernels", fs.list)
	mux.HandleFunc("POST /api/kernels", fs.start)
	mux.HandleFunc("GET /api/kernels/{id}", fs.get)
	mux.HandleFunc("DELETE /api/kernels/{id}", fs.shutdown)
	mux.HandleFunc("POST /api/kernels/{id}/restart", fs.restart)
	mux.HandleFunc("POST /api/kernels/{id}/interrupt", fs.interrupt)
	mux.HandleFunc("GET /api/kernels/{id}/channels", fs.channels)

	srv := httptest.NewServer(fs.authorized(mux))
	t.Cleanup(srv.Close)
	return fs, srv
}

func newClient(t *testing.T, srv *httptest.Server) *jupyter.Client {
	t.Helper()
	cfg := config.DefaultJupyterConfig()
	cfg.URL = srv.URL
	cfg.Token = testToken
	cfg.RequestTimeout = config.Duration(2 * time.Second)

	client, err := jupyter.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func (fs *fakeServer) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token "+testToken {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fs *fakeServer) add(model jupyter.KernelModel) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.kernels[model.ID] = model
}

func (fs *fakeServer) remove(id string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.kernels, id)
}

func (fs *fakeServer) restartCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.restarts)
}

func (fs *fakeServer) list(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	models := make([]jupyter.KernelModel, 0, len(fs.kernels))
	for _, k := range fs.kernels {
		models = append(models, k)
	}
	fs.mu.Unlock()
	writeJSON(w, http.StatusOK, models)
}

func (fs *fakeServer) get(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	model, ok := fs.kernels[r.PathValue("id")]
	fs.mu.Unlock()
	if !ok {
		http.Error(w, `{"message": "Kernel does not exist"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (fs *fakeServer) start(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Name == "" {
		body.Name = "python3"
	}
	model := jupyter.KernelModel{ID: "started-" + body.Name, Name: body.Name, ExecutionState: "starting"}
	fs.add(model)
	writeJSON(w, http.StatusCreated, model)
}

func (fs *fakeServer) shutdown(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	_, ok := fs.kernels[r.PathValue("id")]
	delete(fs.kernels, r.PathValue("id"))
	fs.mu.Unlock()
	if !ok {
		http.Error(w, `{"message": "Kernel does not exist"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fs *fakeServer) restart(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	model, ok := fs.kernels[r.PathValue("id")]
	if ok {
		fs.restarts = append(fs.restarts, model.ID)
	}
	fs.mu.Unlock()
	if !ok {
		http.Error(w, `{"message": "Kernel does not exist"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (fs *fakeServer) interrupt(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (fs *fakeServer) channels(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fs.mu.Lock()
	_, ok := fs.kernels[id]
	fs.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("session_id") == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	socket := &fakeSocket{conn: conn}

	fs.mu.Lock()
	fs.sockets[id] = append(fs.sockets[id], socket)
	fs.mu.Unlock()

	go fs.serve(id, socket)
}

func (fs *fakeServer) serve(kernelID string, socket *fakeSocket) {
	defer socket.conn.Close()
	for {
		var req messaging.Message
		if err := socket.conn.ReadJSON(&req); err != nil {
			return
		}

		fs.mu.Lock()
		fs.received = append(fs.received, &req)
		fs.mu.Unlock()

		for _, reply := range fs.replies(&req) {
			fs.broadcast(kernelID, reply)
		}
	}
}

// replies produces what a kernel sends in answer to req.
func (fs *fakeServer) replies(req *messaging.Message) []*messaging.Message {
	status := func(state string) *messaging.Message {
		return messaging.NewReply(req, messaging.TypeStatus).
			Channel(messaging.ChannelIOPub).
			Content(messaging.Content{"execution_state": state}).
			Build()
	}

	switch req.Type() {
	case messaging.TypeKernelInfoRequest:
		return []*messaging.Message{
			status("busy"),
			messaging.NewReply(req, messaging.TypeKernelInfoReply).
				Channel(messaging.ChannelShell).
				Content(messaging.Content{"implementation": "fake", "protocol_version": messaging.ProtocolVersion}).
				Build(),
			status("idle"),
		}
	case messaging.TypeExecuteRequest:
		code := req.Content.String("code")
		return []*messaging.Message{
			status("busy"),
			messaging.NewReply(req, messaging.TypeStream).
				Channel(messaging.ChannelIOPub).
				Content(messaging.Content{"name": "stdout", "text": code}).
				Build(),
			messaging.NewReply(req, messaging.TypeExecuteResult).
				Channel(messaging.ChannelIOPub).
				Content(messaging.Content{
					"execution_count": 1,
					"data":            map[string]any{"text/plain": code},
					"metadata":        map[string]any{},
				}).
				Build(),
			messaging.NewReply(req, messaging.TypeExecuteReply).
				Channel(messaging.ChannelShell).
				Content(messaging.Content{"status": "ok", "execution_count": 1}).
				Build(),
			status("idle"),
		}
	default:
		return nil
	}
}

func (fs *fakeServer) broadcast(kernelID string, msg *messaging.Message) {
	fs.mu.Lock()
	sockets := append([]*fakeSocket(nil), fs.sockets[kernelID]...)
	fs.mu.Unlock()
	for _, s := range sockets {
		s.write(msg)
	}
}

func (fs *fakeServer) receivedTypes() []messaging.Type {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	types := make([]messaging.Type, 0, len(fs.received))
	for _, msg := range fs.received {
		types = append(types, msg.Type())
	}
	return types
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
