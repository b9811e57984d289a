package handlers

import (
	"time"

	"kfashion/internal/domain"
	"kfashion/internal/studio"
)

type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type backgroundDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Auto  bool   `json:"auto,omitempty"`
}

type resultDTO struct {
	Image     string    `json:"image"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	Mode      string    `json:"mode"`
}

type historyEntryDTO struct {
	Stamp int64 `json:"stamp"`
	resultDTO
}

type sessionDTO struct {
	ID          string            `json:"id"`
	Locale      string            `json:"locale"`
	Mode        string            `json:"mode"`
	Gender      string            `json:"gender"`
	Background  backgroundDTO     `json:"background"`
	SourceImage string            `json:"source_image,omitempty"`
	Status      string            `json:"status"`
	Loading     bool              `json:"loading"`
	Result      *resultDTO        `json:"result,omitempty"`
	Error       *errorDTO         `json:"error,omitempty"`
	History     []historyEntryDTO `json:"history"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toBackgroundDTO(bg domain.Background, locale domain.Locale) backgroundDTO {
	return backgroundDTO{ID: string(bg), Label: bg.Label(locale), Auto: bg == domain.BackgroundAuto}
}

func toResultDTO(res domain.GenerationResult) resultDTO {
	return resultDTO{
		Image:     res.Image.String(),
		Prompt:    res.Prompt,
		CreatedAt: res.CreatedAt,
		Mode:      string(res.Mode),
	}
}

func toHistoryDTO(entries []domain.HistoryEntry) []historyEntryDTO {
	out := make([]historyEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryDTO{Stamp: e.Stamp, resultDTO: toResultDTO(e.GenerationResult)})
	}
	return out
}

func toSessionDTO(snap studio.Snapshot) sessionDTO {
	dto := sessionDTO{
		ID:         snap.ID,
		Locale:     string(snap.Locale),
		Mode:       string(snap.Mode),
		Gender:     string(snap.Gender),
		Background: toBackgroundDTO(snap.Background, snap.Locale),
		Status:     string(snap.Status),
		Loading:    snap.Status == studio.StatusLoading,
		History:    toHistoryDTO(snap.History),
		UpdatedAt:  snap.UpdatedAt,
	}
	if snap.SourceImage != nil {
		dto.SourceImage = snap.SourceImage.String()
	}
	if snap.Result != nil {
		res := toResultDTO(*snap.Result)
		dto.Result = &res
	}
	if snap.Failure != nil {
		dto.Error = &errorDTO{Code: string(snap.Failure.Kind), Message: snap.Failure.Message, Detail: snap.Failure.Detail}
	}
	return dto
}
