package telegram_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sprachbot/internal/infra/telegram"
)

const testToken = "123:secret-token"

type apiCall struct {
	Method string
	Params url.Values
	Upload []byte
}

// fakeBotAPI serves the subset of the Bot API the client uses.
type fakeBotAPI struct {
	server *httptest.Server

	mu      sync.Mutex
	calls   []apiCall
	updates [][]map[string]any
	files   map[string][]byte
	nextID  int
}

func newFakeBotAPI(t *testing.T) *fakeBotAPI {
	t.Helper()
	f := &fakeBotAPI{
		files:  map[string][]byte{"voice/file_1.oga": []byte("OggS-user")},
		nextID: 500,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/bot"+testToken+"/", f.handleMethod)
	mux.HandleFunc("/file/bot"+testToken+"/", f.handleFile)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBotAPI) options() telegram.Options {
	return telegram.Options{
		APIEndpoint:  f.server.URL + "/bot%s/%s",
		FileEndpoint: f.server.URL + "/file/bot%s/%s",
		HTTPClient:   f.server.Client(),
	}
}

func (f *fakeBotAPI) newClient(t *testing.T) *telegram.Client {
	t.Helper()
	client, err := telegram.NewClient(testToken, f.options(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return client
}

func (f *fakeBotAPI) queueUpdates(updates ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updates)
}

func (f *fakeBotAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBotAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeBotAPI) handleMethod(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	call := apiCall{Method: method}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err == nil {
			call.Params = url.Values(r.MultipartForm.Value)
			if file, _, err := r.FormFile("voice"); err == nil {
				call.Upload, _ = io.ReadAll(file)
			}
		}
	} else {
		r.ParseForm()
		call.Params = r.PostForm
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	switch method {
	case "getMe":
		writeResult(w, map[string]any{"id": 1, "is_bot": true, "first_name": "Sprachbot", "username": "sprachbot_test"})
	case "sendMessage", "sendVoice":
		chatID, _ := strconv.ParseInt(call.Params.Get("chat_id"), 10, 64)
		f.mu.Lock()
		f.nextID++
		id := f.nextID
		f.mu.Unlock()
		writeResult(w, map[string]any{"message_id": id, "date": 0, "chat": map[string]any{"id": chatID, "type": "private"}})
	case "sendChatAction", "deleteMessage", "deleteWebhook", "setWebhook":
		writeResult(w, true)
	case "getFile":
		if call.Params.Get("file_id") != "voice-1" {
			writeError(w, http.StatusBadRequest, "Bad Request: invalid file_id")
			return
		}
		writeResult(w, map[string]any{"file_id": "voice-1", "file_unique_id": "u1", "file_size": 9, "file_path": "voice/file_1.oga"})
	case "getUpdates":
		f.mu.Lock()
		var batch []map[string]any
		if len(f.updates) > 0 {
			batch = f.updates[0]
			f.updates = f.updates[1:]
		}
		f.mu.Unlock()
		if batch == nil {
			time.Sleep(20 * time.Millisecond)
			batch = []map[string]any{}
		}
		writeResult(w, batch)
	default:
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

func (f *fakeBotAPI) handleFile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/file/bot"+testToken+"/")
	f.mu.Lock()
	data, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(data)
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func writeError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": status, "description": description})
}

func textUpdate(updateID int, chatID int64, text string) map[string]any {
	return map[string]any{
		"update_id": updateID,
		"message": map[string]any{
			"message_id": updateID * 10,
			"date":       0,
			"chat":       map[string]any{"id": chatID, "type": "private"},
			"from":       map[string]any{"id": 9, "is_bot": false, "first_name": "Anna", "username": "anna"},
			"text":       text,
		},
	}
}

func voiceUpdate(updateID int, chatID int64, fileID string) map[string]any {
	return map[string]any{
		"update_id": updateID,
		"message": map[string]any{
			"message_id": updateID * 10,
			"date":       0,
			"chat":       map[string]any{"id": chatID, "type": "private"},
			"voice":      map[string]any{"file_id": fileID, "file_unique_id": "u-" + fileID, "duration": 3},
		},
	}
}
