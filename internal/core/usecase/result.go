package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/core/ports"
)

type ResultUseCase struct {
	store ports.ResultStore
}

func NewResultUseCase(store ports.ResultStore) *ResultUseCase {
	return &ResultUseCase{store: store}
}

// GetResult reports unknown ids through the tagged result, never as an error.
func (uc *ResultUseCase) GetResult(ctx context.Context, documentID string) (domain.Result, error) {
	if strings.TrimSpace(documentID) == "" {
		return domain.Result{}, domain.WrapError(domain.ErrInvalidInput, "get result", errors.New("uploadId is required"))
	}
	res, err := uc.store.Get(ctx, documentID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load result: %w", err)
	}
	return res, nil
}
