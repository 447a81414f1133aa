package handlers

import (
	"net/http"

	"github.com/6529-Collections/nftsales/internal/cluster"
)

func ClusterPingGetHandler(workerID string) (cluster.PingResponse, error) {
	return cluster.PingResponse{WorkerID: workerID, Status: "OK"}, nil
}

// ClusterDispatchPostHandler runs a dispatched command on this worker.
func ClusterDispatchPostHandler(r *http.Request, executor *cluster.Executor) (cluster.DispatchResponse, error) {
	var req cluster.DispatchRequest
	if err := decodeBody(r, &req); err != nil {
		return cluster.DispatchResponse{}, err
	}
	cmd, err := cluster.DecodeCommand(executor.Decoder(), req)
	if err != nil {
		return cluster.DispatchResponse{}, err
	}
	res, err := executor.Execute(r.Context(), cmd)
	if err != nil {
		return cluster.DispatchResponse{}, err
	}
	return cluster.EncodeResult(res)
}
