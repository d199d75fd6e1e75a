// Package rpc exposes host scans over gRPC and provides the matching client.
//
// Messages are the JSON encodings of the model types; no protobuf schema is
// involved.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const (
	codecName   = "json"
	serviceName = "confgen.scan.v1.ScanService"

	MethodScanStorage = "/" + serviceName + "/ScanStorage"
	MethodScanNetwork = "/" + serviceName + "/ScanNetwork"
	MethodScanHost    = "/" + serviceName + "/ScanHost"
)

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return codecName
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
