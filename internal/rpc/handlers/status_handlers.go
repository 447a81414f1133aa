package handlers

import (
	"context"
	"net/http"

	"github.com/6529-Collections/nftsales/internal/eth/ethdb"
)

type CheckpointLister interface {
	ListCheckpoints(ctx context.Context) ([]ethdb.Checkpoint, error)
}

type StatusResponse struct {
	Status      string             `json:"status"`
	Checkpoints []ethdb.Checkpoint `json:"checkpoints"`
}

func StatusGetHandler(r *http.Request, checkpoints CheckpointLister) (StatusResponse, error) {
	list, err := checkpoints.ListCheckpoints(r.Context())
	if err != nil {
		return StatusResponse{}, err
	}
	if list == nil {
		list = []ethdb.Checkpoint{}
	}
	return StatusResponse{Status: "OK", Checkpoints: list}, nil
}
