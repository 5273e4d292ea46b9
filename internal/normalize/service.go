package normalize

import (
	"psnrwanda/internal/domain"
)

// DecodeService maps a service record; the backend reports activity as
// either "active" or "isActive"
func DecodeService(obj Object) domain.Service {
	return domain.Service{
		ID:             obj.Int("id"),
		Title:          obj.String("title"),
		Description:    obj.String("description"),
		IsActive:       obj.Truthy("active") || obj.Truthy("isActive"),
		ImageURL:       obj.String("imageUrl"),
		BulletPoints:   obj.Strings("bulletPoints"),
		PriceInfo:      obj.String("priceInfo"),
		TurnaroundTime: obj.String("turnaroundTime"),
		AdditionalInfo: obj.String("additionalInfo"),
		CTAText:        obj.String("ctaText"),
	}
}

// DecodeServices maps the service listing. A body that is not an array is a
// ParseFailure so callers can switch to the built-in catalogue.
func DecodeServices(body []byte) ([]domain.Service, error) {
	value, err := ParseJSON(body)
	if err != nil {
		return nil, domain.WrapError(domain.KindParseFailure, "Failed to parse service list", err)
	}

	arr, ok := value.([]any)
	if !ok {
		return nil, domain.NewError(domain.KindParseFailure, "Failed to parse service list")
	}

	services := make([]domain.Service, 0, len(arr))
	for _, item := range arr {
		if obj, ok := AsObject(item); ok {
			services = append(services, DecodeService(obj))
		}
	}
	return services, nil
}

// DecodeServiceBody maps a single service response; nil means "no such service"
func DecodeServiceBody(body []byte) (*domain.Service, error) {
	value, err := ParseJSON(body)
	if err != nil {
		return nil, domain.WrapError(domain.KindParseFailure, "Failed to parse service", err)
	}

	obj, ok := AsObject(value)
	if !ok || len(obj) == 0 {
		return nil, nil
	}
	svc := DecodeService(obj)
	return &svc, nil
}
