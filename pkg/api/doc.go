// Package api turns endpoint descriptors into authenticated HTTP
// requests and classifies the outcome of each attempt.
//
// The package separates two concerns:
//
//   - Builder derives a RequestEnvelope (URL, headers, body) from an
//     EndpointDescriptor and call-time parameters. It is pure and safe
//     for concurrent use.
//   - Executor performs exactly one request/response cycle per call and
//     maps every failure to a typed error from streamnet/pkg/errors:
//     no_connection, invalid_endpoint, transport, http, decoding or
//     invalid_response.
//
// The executor performs no retries and never touches the response
// cache; both are the caller's responsibility (see streamnet/pkg/retry
// and streamnet/pkg/stream).
package api
