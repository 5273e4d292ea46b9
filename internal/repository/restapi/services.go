package restapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/normalize"
)

// ServiceCatalog implements repository.ServiceCatalog
type ServiceCatalog struct {
	client *Client
}

// NewServiceCatalog creates a new ServiceCatalog
func NewServiceCatalog(client *Client) *ServiceCatalog {
	return &ServiceCatalog{client: client}
}

// List returns every service the backend knows, active or not
func (s *ServiceCatalog) List(ctx context.Context) ([]domain.Service, error) {
	resp, err := s.client.get(ctx, "services")
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, domain.NewError(domain.KindServerRejected, fmt.Sprintf("services request returned status %d", resp.status))
	}
	return normalize.DecodeServices(resp.body)
}

// GetByID returns one service, or nil when it does not exist
func (s *ServiceCatalog) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	resp, err := s.client.get(ctx, "services", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, nil
	}
	if !resp.ok() {
		return nil, domain.NewError(domain.KindServerRejected, fmt.Sprintf("service request returned status %d", resp.status))
	}
	return normalize.DecodeServiceBody(resp.body)
}
