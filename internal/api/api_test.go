package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"neofab/internal/blobstore"
	"neofab/internal/core"
	"neofab/internal/model"
	"neofab/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	caps := testutil.NewStubCapabilityProvider()
	caps.GrantStaff("staff")
	caps.GrantAdmin("admin")

	svc := core.NewService(
		testutil.NewTestStore(t),
		blobstore.NewMemoryBlobStore(),
		nil,
		caps,
		nil,
		testutil.FixedClock(),
		testutil.NewStubIDGenerator(),
		0,
	)
	return SetupRouter(svc)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		r = bytes.NewReader(data)
	} else {
		r = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return v
}

func submitProject(t *testing.T, router *gin.Engine, owner, title string) model.Project {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/projects", owner,
		gin.H{"title": title, "description": "test project"})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit project status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[model.Project](t, w)
}

func TestAPI_SubmitProject(t *testing.T) {
	router := newTestRouter(t)

	p := submitProject(t, router, "alice", "Bracket v2")
	if p.Status != model.ProjectSubmitted {
		t.Errorf("status = %q, want %q", p.Status, model.ProjectSubmitted)
	}
	if p.OwnerID != "alice" {
		t.Errorf("owner = %q, want %q", p.OwnerID, "alice")
	}
	if p.Version != 1 {
		t.Errorf("version = %d, want 1", p.Version)
	}

	t.Run("missing title is rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects", "alice", gin.H{"description": "x"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestAPI_ProjectStatus(t *testing.T) {
	router := newTestRouter(t)
	p := submitProject(t, router, "alice", "Bracket v2")

	t.Run("staff can move to review", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+p.ID+"/status", "staff",
			gin.H{"status": "under_review"})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		ev := decode[model.StatusEvent](t, w)
		if ev.From != "submitted" || ev.To != "under_review" {
			t.Errorf("event = %s -> %s, want submitted -> under_review", ev.From, ev.To)
		}
	})

	t.Run("plain user cannot review", func(t *testing.T) {
		p2 := submitProject(t, router, "alice", "Another")
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+p2.ID+"/status", "mallory",
			gin.H{"status": "under_review"})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("illegal transition", func(t *testing.T) {
		p3 := submitProject(t, router, "alice", "Third")
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+p3.ID+"/status", "staff",
			gin.H{"status": "completed"})
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects/nope/status", "staff",
			gin.H{"status": "under_review"})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestAPI_ListProjects(t *testing.T) {
	router := newTestRouter(t)
	submitProject(t, router, "alice", "One")
	submitProject(t, router, "bob", "Two")

	w := doJSON(t, router, http.MethodGet, "/api/v1/projects?owner=alice", "staff", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	projects := decode[[]model.Project](t, w)
	if len(projects) != 1 {
		t.Fatalf("len(projects) = %d, want 1", len(projects))
	}
	if projects[0].Title != "One" {
		t.Errorf("title = %q, want %q", projects[0].Title, "One")
	}
}

func TestAPI_Messages(t *testing.T) {
	router := newTestRouter(t)
	p := submitProject(t, router, "alice", "Bracket v2")

	t.Run("owner posts", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+p.ID+"/messages", "alice",
			gin.H{"body": "please use PETG"})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("blank body rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+p.ID+"/messages", "alice",
			gin.H{"body": "   "})
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("outsider rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+p.ID+"/messages", "mallory",
			gin.H{"body": "hi"})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("thread contains system and user messages", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/projects/"+p.ID+"/messages", "alice", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		messages := decode[[]model.Message](t, w)
		if len(messages) < 2 {
			t.Fatalf("len(messages) = %d, want >= 2", len(messages))
		}
		if messages[0].AuthorID != model.SystemAuthor {
			t.Errorf("first author = %q, want %q", messages[0].AuthorID, model.SystemAuthor)
		}
	})
}

func TestAPI_Attachments(t *testing.T) {
	router := newTestRouter(t)
	p := submitProject(t, router, "alice", "Bracket v2")

	content := []byte("solid bracket\nfacet normal 0 0 1\n")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "bracket.stl")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	fw.Write(content)
	mw.WriteField("kind", "model")
	mw.WriteField("quantity", "3")
	mw.WriteField("note", "print in gray")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+p.ID+"/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Actor", "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("attach status = %d, body = %s", w.Code, w.Body.String())
	}
	a := decode[model.Attachment](t, w)
	if a.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", a.Quantity)
	}
	if a.OriginalName != "bracket.stl" {
		t.Errorf("original name = %q, want %q", a.OriginalName, "bracket.stl")
	}

	t.Run("content round-trips", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/attachments/"+a.ID, "alice", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !bytes.Equal(w.Body.Bytes(), content) {
			t.Errorf("content mismatch: got %d bytes, want %d", w.Body.Len(), len(content))
		}
		if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "bracket.stl") {
			t.Errorf("Content-Disposition = %q, want filename", cd)
		}
	})

	t.Run("unsupported kind", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, _ := mw.CreateFormFile("file", "virus.exe")
		fw.Write([]byte("nope"))
		mw.WriteField("kind", "executable")
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+p.ID+"/attachments", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("X-Actor", "alice")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})
}

func TestAPI_JobsAndTimeline(t *testing.T) {
	router := newTestRouter(t)
	p := submitProject(t, router, "alice", "Bracket v2")

	for _, status := range []string{"under_review", "approved"} {
		w := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+p.ID+"/status", "staff",
			gin.H{"status": status})
		if w.Code != http.StatusOK {
			t.Fatalf("transition to %s: status = %d, body = %s", status, w.Code, w.Body.String())
		}
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+p.ID+"/jobs", "staff",
		gin.H{"priority": 2})
	if w.Code != http.StatusCreated {
		t.Fatalf("create job: status = %d, body = %s", w.Code, w.Body.String())
	}
	j := decode[model.PrintJob](t, w)
	if j.Status != model.JobQueued {
		t.Errorf("job status = %q, want %q", j.Status, model.JobQueued)
	}

	t.Run("schedule and progress", func(t *testing.T) {
		for _, status := range []string{"scheduled", "printing", "done"} {
			w := doJSON(t, router, http.MethodPost, "/api/v1/print_jobs/"+j.ID+"/status", "staff",
				gin.H{"status": status})
			if w.Code != http.StatusOK {
				t.Fatalf("transition to %s: status = %d, body = %s", status, w.Code, w.Body.String())
			}
		}
	})

	t.Run("timeline lists events and messages in order", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/projects/"+p.ID+"/timeline", "alice", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		entries := decode[[]core.TimelineEntry](t, w)
		// Three project events plus three system messages.
		if len(entries) != 6 {
			t.Fatalf("len(entries) = %d, want 6", len(entries))
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].Time.Before(entries[i-1].Time) {
				t.Errorf("entry %d out of order", i)
			}
		}
	})

	t.Run("audit snapshot", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/projects/"+p.ID+"/audit", "alice", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		audit := decode[core.Audit](t, w)
		if audit.Project == nil || audit.Project.ID != p.ID {
			t.Fatal("audit missing project")
		}
		if len(audit.PrintJobs) != 1 {
			t.Errorf("len(audit.PrintJobs) = %d, want 1", len(audit.PrintJobs))
		}
		if len(audit.Timeline) == 0 {
			t.Error("audit timeline empty")
		}
	})
}

func TestAPI_Catalog(t *testing.T) {
	router := newTestRouter(t)

	t.Run("admin adds a printer", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/printers", "admin",
			gin.H{"name": "Prusa MK4", "model": "MK4", "location": "lab 2", "active": true})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("staff cannot manage catalog", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/materials", "staff",
			gin.H{"name": "PLA"})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("anyone lists printers", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/printers", "alice", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		printers := decode[[]model.Printer](t, w)
		if len(printers) != 1 {
			t.Errorf("len(printers) = %d, want 1", len(printers))
		}
	})
}
