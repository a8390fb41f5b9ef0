package category

import (
	"log/slog"
)

type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

func (s *Service) GetAllCategories() []CategoryResponse {
	categories := All()
	responses := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		responses = append(responses, c.ToResponse())
	}

	s.logger.Debug("retrieved categories", "count", len(responses))
	return responses
}

func (s *Service) GetCategoryByName(name string) (*CategoryResponse, bool) {
	if !IsValid(name) {
		return nil, false
	}
	response := Category(name).ToResponse()
	return &response, true
}

func (s *Service) IsValidCategory(name string) bool {
	return IsValid(name)
}
