package configstore

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/shopoverlay/kit"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// GetRequest asks for one product's overlay.
type GetRequest struct {
	ProductID overlay.ProductID `json:"product_id"`
}

// SetRequest replaces one product's overlay. Empty fields remove entries.
type SetRequest struct {
	ProductID overlay.ProductID  `json:"product_id"`
	Overlay   overlay.Descriptor `json:"overlay"`
}

// ClearRequest removes one product's overlay.
type ClearRequest struct {
	ProductID overlay.ProductID `json:"product_id"`
}

// ListRequest pages through configured products.
type ListRequest struct {
	Limit int `json:"limit"`
}

// ListResponse wraps List results.
type ListResponse struct {
	Overlays []Listing `json:"overlays"`
}

// Endpoints are the store operations, shared by the HTTP and MCP
// transports.
type Endpoints struct {
	Get   kit.Endpoint
	Set   kit.Endpoint
	Clear kit.Endpoint
	List  kit.Endpoint
}

// MakeEndpoints builds logged endpoints over svc.
func MakeEndpoints(svc Service, logger *slog.Logger) Endpoints {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "configstore")
	wrap := func(op string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(logger, op))(ep)
	}
	return Endpoints{
		Get:   wrap("overlay_get", getEndpoint(svc)),
		Set:   wrap("overlay_set", setEndpoint(svc)),
		Clear: wrap("overlay_clear", clearEndpoint(svc)),
		List:  wrap("overlay_list", listEndpoint(svc)),
	}
}

func getEndpoint(svc Service) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*GetRequest)
		return read(ctx, svc, r.ProductID)
	}
}

func setEndpoint(svc Service) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*SetRequest)
		if err := svc.Write(ctx, r.ProductID, r.Overlay); err != nil {
			return nil, err
		}
		return read(ctx, svc, r.ProductID)
	}
}

func clearEndpoint(svc Service) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*ClearRequest)
		if err := svc.Clear(ctx, r.ProductID); err != nil {
			return nil, err
		}
		return overlay.Response{}, nil
	}
}

func listEndpoint(svc Service) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*ListRequest)
		list, err := svc.List(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []Listing{}
		}
		return ListResponse{Overlays: list}, nil
	}
}

func read(ctx context.Context, svc Service, id overlay.ProductID) (overlay.Response, error) {
	d, ok, err := svc.Read(ctx, id)
	if err != nil || !ok {
		return overlay.Response{}, err
	}
	return overlay.Response{Overlay: &d}, nil
}
