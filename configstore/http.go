package configstore

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/shopoverlay/horosafe"
	"github.com/hazyhaar/shopoverlay/idgen"
	"github.com/hazyhaar/shopoverlay/kit"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// ActorHeader carries the operator name for administrative writes. The
// admin surface sits behind the platform's authentication; the header is
// attribution only.
const ActorHeader = "X-Overlay-Actor"

const maxBody = 16 << 10

var newRequestID = idgen.Prefixed("req_", idgen.Short(12))

// Routes mounts the read API and the admin API:
//
//	GET    /api/overlays/{productId}   -> 200 {"overlay": {...}|null}
//	PUT    /admin/overlays/{productId} -> 200 | 422 {"errors": [...]} | 500
//	DELETE /admin/overlays/{productId}
//	GET    /admin/overlays?limit=N
//	GET    /healthz
func Routes(eps Endpoints, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "configstore")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The read path never fails loudly: the storefront treats any problem
	// as "no overlay".
	r.Get("/api/overlays/{productId}", func(w http.ResponseWriter, r *http.Request) {
		resp, err := eps.Get(r.Context(), &GetRequest{ProductID: productID(r)})
		if err != nil {
			logger.WarnContext(r.Context(), "configstore: read degraded to null", "error", err)
			writeJSON(w, http.StatusOK, overlay.Response{})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Route("/admin/overlays", func(r chi.Router) {
		r.Use(actor)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			limit := 100
			if s := r.URL.Query().Get("limit"); s != "" {
				n, err := strconv.Atoi(s)
				if err != nil || n <= 0 {
					writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
					return
				}
				limit = n
			}
			resp, err := eps.List(r.Context(), &ListRequest{Limit: limit})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Put("/{productId}", func(w http.ResponseWriter, r *http.Request) {
			var d overlay.Descriptor
			body, err := horosafe.LimitedReadAll(r.Body, maxBody)
			if err == nil {
				err = json.Unmarshal(body, &d)
			}
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			resp, err := eps.Set(r.Context(), &SetRequest{ProductID: productID(r), Overlay: d})
			if err != nil {
				writeWriteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Delete("/{productId}", func(w http.ResponseWriter, r *http.Request) {
			resp, err := eps.Clear(r.Context(), &ClearRequest{ProductID: productID(r)})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})
	})

	return r
}

// productID returns the decoded {productId} segment. chi routes on
// RawPath when the request carries one, leaving the param escaped.
func productID(r *http.Request) overlay.ProductID {
	p := chi.URLParam(r, "productId")
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(p); err == nil {
			p = u
		}
	}
	return overlay.ProductID(p)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" || horosafe.ValidateIdentifier(id) != nil {
			id = newRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), id)))
	})
}

func actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if a := r.Header.Get(ActorHeader); a != "" {
			ctx = kit.WithActor(ctx, a)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeWriteError(w http.ResponseWriter, err error) {
	if ue := UserErrors(err); ue != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": ue})
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
