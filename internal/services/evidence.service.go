package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/internal/repository"
	"github.com/swiftroute/delivery-gateway/pkg/logger"
)

// EvidenceService reconstructs delivery evidence across the storage
// generations: normalized pod_photos rows, failure-report JSON photo lists and
// the legacy orders.photo_url field.
type EvidenceService struct {
	orderRepo   OrderRepository
	podRepo     PodRepository
	failureRepo FailureRepository
}

func NewEvidenceService(orderRepo OrderRepository, podRepo PodRepository, failureRepo FailureRepository) *EvidenceService {
	return &EvidenceService{
		orderRepo:   orderRepo,
		podRepo:     podRepo,
		failureRepo: failureRepo,
	}
}

// GetDeliveryEvidence merges every evidence source for one order. Normalized
// or failure-report photos come first, legacy photos are appended afterwards.
// A URL dual-written to both generations appears twice; display layers get the
// provenance tag to tell them apart.
func (s *EvidenceService) GetDeliveryEvidence(ctx context.Context, orderID string) (*model.DeliveryEvidence, error) {
	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	// Evidence is only defined for finished orders. An in-flight order may
	// already carry stale legacy data; it must not surface as evidence.
	if !order.Status.Terminal() {
		return nil, ErrOrderNotTerminal
	}

	evidence := &model.DeliveryEvidence{
		Order:  order.Summary(),
		Photos: []model.EvidencePhoto{},
	}

	pod, err := s.podRepo.GetByOrderID(ctx, orderID)
	switch {
	case err == nil:
		evidence.Pod = pod
		photos, perr := s.podRepo.ListPhotos(ctx, pod.ID)
		if perr != nil {
			logger.Warn("pod photo listing failed", "order_id", orderID, "error", perr)
		}
		for _, p := range photos {
			evidence.Photos = append(evidence.Photos, model.EvidencePhoto{
				ID:          p.ID,
				URL:         p.PhotoURL,
				Type:        p.PhotoType,
				Description: p.Description,
				Source:      model.PhotoSourcePod,
			})
		}
	case errors.Is(err, repository.ErrPodNotFound):
		failure, ferr := s.failureRepo.GetByOrderID(ctx, orderID)
		if ferr == nil {
			evidence.Failure = failure
			for i, url := range model.ParseFailurePhotos(failure.Photos) {
				evidence.Photos = append(evidence.Photos, model.EvidencePhoto{
					ID:     fmt.Sprintf("%s-photo-%d", failure.ID, i),
					URL:    url,
					Type:   "failure",
					Source: model.PhotoSourceFailure,
				})
			}
		} else if !errors.Is(ferr, repository.ErrFailureNotFound) {
			return nil, ferr
		}
	default:
		return nil, err
	}

	legacy := model.ParseLegacyPhotoField(order.PhotoURL)
	for i, url := range legacy.URLs() {
		evidence.Photos = append(evidence.Photos, model.EvidencePhoto{
			ID:     fmt.Sprintf("legacy-%d", i),
			URL:    url,
			Type:   "delivery",
			Source: model.PhotoSourceLegacy,
		})
	}
	evidence.LegacyCount = len(legacy.URLs())

	evidence.HasEvidence = evidence.Pod != nil || evidence.Failure != nil || len(evidence.Photos) > 0
	return evidence, nil
}

// LegacyFieldReport is the diagnostic view of one order's legacy photo field.
type LegacyFieldReport struct {
	OrderID string   `json:"order_id"`
	Kind    string   `json:"kind"`
	Raw     string   `json:"raw"`
	URLs    []string `json:"urls"`
}

// InspectLegacyPhotoField classifies the raw legacy photo value of an order.
// Exposed on a debug endpoint for investigating migration stragglers.
func (s *EvidenceService) InspectLegacyPhotoField(ctx context.Context, orderID string) (*LegacyFieldReport, error) {
	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	field := model.ParseLegacyPhotoField(order.PhotoURL)
	return &LegacyFieldReport{
		OrderID: orderID,
		Kind:    legacyKindString(field.Kind),
		Raw:     field.Raw,
		URLs:    field.URLs(),
	}, nil
}

func legacyKindString(k model.LegacyPhotoKind) string {
	switch k {
	case model.LegacyPhotoEmpty:
		return "empty"
	case model.LegacyPhotoSingleURL:
		return "single_url"
	case model.LegacyPhotoURLList:
		return "url_list"
	case model.LegacyPhotoUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}
