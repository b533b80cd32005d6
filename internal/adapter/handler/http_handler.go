package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	chiware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/rl1809/resto-orders/internal/config"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/core/service"
	"github.com/rl1809/resto-orders/internal/poll"
)

type HTTPHandler struct {
	orders   *service.OrderService
	catalog  *service.CatalogService
	reports  *service.ReportService
	auth     *AdminAuth
	logger   *gecho.Logger
	validate *validator.Validate
	location *time.Location
	now      func() time.Time
}

// OrderView is an order as the stations see it.
type OrderView struct {
	domain.Order
	Urgency poll.Urgency `json:"urgency,omitempty"`
}

func NewHTTPHandler(
	orders *service.OrderService,
	catalog *service.CatalogService,
	reports *service.ReportService,
	auth *AdminAuth,
	logger *gecho.Logger,
	loc *time.Location,
) *HTTPHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &HTTPHandler{
		orders:   orders,
		catalog:  catalog,
		reports:  reports,
		auth:     auth,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		location: loc,
		now:      time.Now,
	}
}

// Router mounts every route behind the shared middleware stack.
func (h *HTTPHandler) Router(corsCfg config.CorsConfig, accessLogger *gecho.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiware.RequestID)
	r.Use(chiware.RealIP)
	r.Use(chiware.Recoverer)
	r.Use(gecho.Handlers.CreateLoggingMiddleware(accessLogger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		ExposedHeaders:   corsCfg.ExposedHeaders,
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	}).Handler)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tables", h.ListTables)
		r.Get("/categories", h.ListCategories)
		r.Get("/menu-items", h.ListMenuItems)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{code}", h.GetOrder)
			r.Patch("/{code}", h.UpdateOrder)
			r.Get("/{code}/events", h.GetOrderEvents)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Group(func(r chi.Router) {
				r.Use(h.auth.Middleware)
				r.Get("/reports", h.SalesReport)
				r.Patch("/menu-items/{id}", h.UpdateMenuItem)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		gecho.NotFound(w, gecho.Send())
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	gecho.Success(w, gecho.WithData(map[string]string{"status": "ok"}), gecho.Send())
}

func (h *HTTPHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.ListTables(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	gecho.Success(w, gecho.WithData(tables), gecho.Send())
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	gecho.Success(w, gecho.WithData(categories), gecho.Send())
}

func (h *HTTPHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	filter := domain.MenuFilter{CategoryID: r.URL.Query().Get("category_id")}
	if raw := r.URL.Query().Get("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			gecho.BadRequest(w, gecho.WithMessage("in_stock must be a boolean"), gecho.Send())
			return
		}
		filter.InStock = &inStock
	}

	items, err := h.catalog.ListMenuItems(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	gecho.Success(w, gecho.WithData(items), gecho.Send())
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := decodeAndValidate[CreateOrderHTTPRequest](w, r, h.validate)
	if err != nil {
		h.logger.Debug("Rejected order request", gecho.Field("error", err))
		h.writeError(w, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), body.toService(r.Header.Get("Idempotency-Key")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	setPollHeaders(w, poll.ActorCustomer)
	gecho.Success(w,
		gecho.WithMessage("Order created"),
		gecho.WithData(h.view(*order)),
		gecho.Send(),
	)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	setPollHeaders(w, poll.ActorCustomer)
	gecho.Success(w, gecho.WithData(h.view(*order)), gecho.Send())
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r.URL.Query(), h.location)
	if err != nil {
		h.writeError(w, err)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, h.view(o))
	}
	setPollHeaders(w, poll.ActorKitchen)
	gecho.Success(w, gecho.WithData(views), gecho.Send())
}

func (h *HTTPHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := decodeAndValidate[TransitionHTTPRequest](w, r, h.validate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	t, err := body.toDomain()
	if err != nil {
		h.writeError(w, err)
		return
	}

	order, err := h.orders.ApplyTransition(r.Context(), chi.URLParam(r, "code"), t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	gecho.Success(w, gecho.WithData(h.view(*order)), gecho.Send())
}

func (h *HTTPHandler) GetOrderEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.orders.GetOrderEvents(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	gecho.Success(w, gecho.WithData(events), gecho.Send())
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := decodeAndValidate[LoginHTTPRequest](w, r, h.validate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	token, exp, err := h.auth.Login(body.Username, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrLoginDisabled) {
			h.logger.Warn("Admin login failed", gecho.Field("username", body.Username))
			gecho.Unauthorized(w, gecho.WithMessage("Invalid username or password"), gecho.Send())
			return
		}
		h.writeError(w, err)
		return
	}

	gecho.Success(w,
		gecho.WithData(map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_at":   exp,
		}),
		gecho.Send(),
	)
}

func (h *HTTPHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r.URL.Query(), h.location)
	if err != nil {
		h.writeError(w, err)
		return
	}

	report, err := h.reports.GenerateSalesReport(r.Context(), from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	gecho.Success(w, gecho.WithData(report), gecho.Send())
}

func (h *HTTPHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	body, err := decodeAndValidate[UpdateMenuItemHTTPRequest](w, r, h.validate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	item, err := h.catalog.UpdateMenuItem(r.Context(), chi.URLParam(r, "id"), body.toDomain())
	if err != nil {
		h.writeError(w, err)
		return
	}
	gecho.Success(w, gecho.WithData(item), gecho.Send())
}

func (h *HTTPHandler) view(o domain.Order) OrderView {
	v := OrderView{Order: o}
	if !o.Status.IsTerminal() {
		v.Urgency = poll.ClassifyUrgency(o.CreatedAt, h.now())
	}
	return v
}

// setPollHeaders tells station clients how often to come back.
func setPollHeaders(w http.ResponseWriter, actor poll.Actor) {
	w.Header().Set("Cache-Control", "no-store")
	if d := poll.DefaultInterval(actor); d > 0 {
		w.Header().Set("X-Poll-Interval", strconv.Itoa(int(d/time.Second)))
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var te *domain.TransitionError
	switch {
	case errors.As(err, &te):
		gecho.BadRequest(w,
			gecho.WithMessage(err.Error()),
			gecho.WithData(map[string]string{"field": te.Field, "from": te.From, "to": te.To}),
			gecho.Send(),
		)
	case errors.Is(err, domain.ErrNotFound):
		gecho.NotFound(w, gecho.WithMessage(err.Error()), gecho.Send())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidTransition):
		gecho.BadRequest(w, gecho.WithMessage(err.Error()), gecho.Send())
	case errors.Is(err, domain.ErrRepositoryConflict):
		gecho.Conflict(w, gecho.WithMessage("Order was changed by another station, reload and retry"), gecho.Send())
	case errors.Is(err, domain.ErrDuplicateRequest):
		gecho.Conflict(w, gecho.WithMessage("Duplicate request"), gecho.Send())
	case errors.Is(err, domain.ErrExhaustedCodeSpace):
		h.logger.Error("Order code space exhausted", gecho.Field("error", err))
		gecho.ServiceUnavailable(w, gecho.WithMessage("Could not allocate an order code, try again"), gecho.Send())
	default:
		h.logger.Error("Request failed", gecho.Field("error", err))
		gecho.InternalServerError(w, gecho.WithMessage("Internal error"), gecho.Send())
	}
}
