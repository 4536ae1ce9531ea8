package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/deepguard/internal/apperrors"
	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/session"
	"github.com/kdimtricp/deepguard/internal/storage"
	"github.com/kdimtricp/deepguard/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// uploadSlack covers multipart framing on top of the file itself.
	uploadSlack = 1 << 20
	// unboundedUpload caps the body when the policy sets no size limit.
	unboundedUpload = 512 << 20
	formMemory      = 32 << 20
	defaultRefresh  = time.Second
)

type App struct {
	Sessions *session.Manager
	Store    storage.PreviewStore
	Policy   media.Policy
	// MaxUploadSize caps the request body. Zero derives it from Policy.
	MaxUploadSize int64
	// Refresh is how often the analyzing view polls for a new state.
	Refresh time.Duration

	templates *template.Template
}

func NewApp(sessions *session.Manager, store storage.PreviewStore, policy media.Policy) (*App, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &App{
		Sessions:  sessions,
		Store:     store,
		Policy:    policy,
		Refresh:   defaultRefresh,
		templates: tmpl,
	}, nil
}

var templateFuncs = template.FuncMap{
	"barWidth": func(confidence float64) template.CSS {
		return template.CSS(fmt.Sprintf("width: %.2f%%", confidence))
	},
}

type pageData struct {
	Title     string
	Snapshot  workflow.Snapshot
	Formats   string
	Accept    string
	Notice    string
	RefreshMS int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) HomeHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, "index.html", http.StatusOK, app.page(controllerFrom(r).Snapshot(), ""))
}

func (app *App) WorkflowPartialHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, "workflow", http.StatusOK, app.page(controllerFrom(r).Snapshot(), ""))
}

// SelectHandler takes the multipart "file" field from click-to-browse or
// drag-and-drop and makes it the active asset.
func (app *App) SelectHandler(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, app.uploadLimit())

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			notice := "File is too large"
			if limit := app.Policy.SizeLimit(); limit != "" {
				notice += ". Maximum size is " + limit
			}
			app.respond(w, r, http.StatusRequestEntityTooLarge, notice)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			app.respond(w, r, http.StatusBadRequest, "Error reading file")
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	f, err := readUpload(r)
	if err != nil {
		app.respond(w, r, http.StatusBadRequest, "Error reading file")
		return
	}

	app.respondErr(w, r, c.SelectFile(f))
}

func readUpload(r *http.Request) (media.File, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return media.File{}, nil
	}
	if err != nil {
		return media.File{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.File{}, err
	}
	return media.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}

func (app *App) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	app.respondErr(w, r, controllerFrom(r).StartAnalysis())
}

func (app *App) RetryHandler(w http.ResponseWriter, r *http.Request) {
	app.respondErr(w, r, controllerFrom(r).Retry())
}

// ResetHandler backs both "Change file" and "Analyze Another File".
func (app *App) ResetHandler(w http.ResponseWriter, r *http.Request) {
	controllerFrom(r).Reset()
	app.respond(w, r, http.StatusOK, "")
}

// PreviewHandler serves the active asset's preview. Handles of other
// sessions and revoked handles are not found.
func (app *App) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	snap := controllerFrom(r).Snapshot()
	if handle == "" || snap.Asset == nil || snap.Asset.Preview != handle {
		http.NotFound(w, r)
		return
	}

	rc, info, err := app.Store.Open(handle)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, snap.Asset.Name, info.CreatedAt, rc)
}

func (app *App) StateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(controllerFrom(r).Snapshot()); err != nil {
		logger.Warn("encode state failed", "error", err)
	}
}

func (app *App) uploadLimit() int64 {
	if app.MaxUploadSize > 0 {
		return app.MaxUploadSize
	}
	if app.Policy.MaxSize > 0 {
		return app.Policy.MaxSize + uploadSlack
	}
	return unboundedUpload
}

func (app *App) page(snap workflow.Snapshot, notice string) pageData {
	refresh := app.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	if notice == "" && snap.Notice != nil {
		notice = snap.Notice.Message
	}
	return pageData{
		Title:     "DeepGuard - Deepfake Detection",
		Snapshot:  snap,
		Formats:   app.Policy.Describe(),
		Accept:    acceptAttr(app.Policy),
		Notice:    notice,
		RefreshMS: refresh.Milliseconds(),
	}
}

func acceptAttr(p media.Policy) string {
	if len(p.Extensions) == 0 {
		return "image/*,video/*"
	}
	return strings.Join(p.Extensions, ",")
}

// respondErr maps a workflow command result to a response. Validation
// failures are already carried as the snapshot notice.
func (app *App) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		app.respond(w, r, http.StatusOK, "")
	case apperrors.IsValidation(err):
		app.respond(w, r, http.StatusBadRequest, "")
	case errors.Is(err, workflow.ErrBusy), errors.Is(err, workflow.ErrInvalidTransition):
		app.respond(w, r, http.StatusConflict, "")
	case errors.Is(err, workflow.ErrClosed):
		app.respond(w, r, http.StatusGone, "Session expired. Please reload the page.")
	default:
		app.respond(w, r, http.StatusInternalServerError, apperrors.PublicMessage(err))
	}
}

// respond renders the workflow partial for HTMX requests and redirects plain
// form posts back to the page.
func (app *App) respond(w http.ResponseWriter, r *http.Request, status int, notice string) {
	snap := controllerFrom(r).Snapshot()
	if r.Header.Get("HX-Request") != "true" {
		if notice == "" {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		app.render(w, "index.html", status, app.page(snap, notice))
		return
	}
	w.Header().Set("HX-Trigger", "workflowChanged")
	app.render(w, "workflow", status, app.page(snap, notice))
}

func (app *App) render(w http.ResponseWriter, name string, status int, data pageData) {
	var buf bytes.Buffer
	if err := app.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("render template failed", "template", name, "error", err)
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
