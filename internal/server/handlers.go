package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/logging"
	"github.com/agbru/zkfib/internal/publicvalues"
)

const defaultSequenceCount = 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, map[string]any{
		"algorithms": s.service.Algorithms(),
	})
}

// handleCalculate serves GET /calculate?n=<index>&algo=<name>.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	n, err := parseN(r)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	algo := r.URL.Query().Get("algo")
	if algo == "" {
		algo = fibonacci.AlgoIterative
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeouts.RequestTimeout)
	defer cancel()

	outcome, err := s.service.Calculate(ctx, algo, n)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp, err := newCalculateResponse(outcome)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, resp)
}

// handleCompare serves GET /compare?n=<index>.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	n, err := parseN(r)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeouts.RequestTimeout)
	defer cancel()

	cmp, err := s.service.Compare(ctx, n)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := CompareResponse{N: cmp.N, Skipped: cmp.Skipped, Consistent: cmp.Consistent}
	for _, o := range cmp.Outcomes {
		cr, err := newCalculateResponse(o)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		resp.Results = append(resp.Results, cr)
	}
	s.writeJSONResponse(w, http.StatusOK, resp)
}

// handleSequence serves GET /sequence?start=<index>&count=<terms>. start
// defaults to 0 and count to 10.
func (s *Server) handleSequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	start, err := parseUint32Param(r, "start", 0)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	count, err := parseUint32Param(r, "count", defaultSequenceCount)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeouts.RequestTimeout)
	defer cancel()

	seq, err := s.service.Sequence(ctx, start, count)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, SequenceResponse{
		Start:  seq.Start,
		Count:  uint32(len(seq.Values)),
		Values: seq.Values,
	})
}

// handleVerify serves POST /verify with a VerifyRequest body. A record that
// decodes but does not match is reported with 200 and valid=false.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req VerifyRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}
	pv, err := publicvalues.DecodeHex(req.PublicValues)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := VerifyResponse{N: pv.N, Got: pv.Pair(), Valid: true}
	err = s.service.Verify(r.Context(), pv)
	var mismatch apperrors.MismatchError
	switch {
	case err == nil:
	case errors.As(err, &mismatch):
		expected := fibonacci.Iterative(pv.N)
		resp.Valid = false
		resp.Expected = &expected
	default:
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, resp)
}

func parseN(r *http.Request) (uint32, error) {
	nStr := r.URL.Query().Get("n")
	if nStr == "" {
		return 0, errors.New("missing 'n' parameter")
	}
	n, err := strconv.ParseUint(nStr, 10, 32)
	if err != nil {
		return 0, errors.New("invalid 'n' parameter: must be an integer between 0 and 4294967295")
	}
	return uint32(n), nil
}

// parseUint32Param reads an optional uint32 query parameter.
func parseUint32Param(r *http.Request, name string, def uint32) (uint32, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(str, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid '%s' parameter: must be an integer between 0 and 4294967295", name)
	}
	return uint32(v), nil
}

// writeServiceError maps service errors to status codes: invalid input is
// 400, an expired request 504, anything else 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation apperrors.ValidationError
	var unknown *fibonacci.UnknownCalculatorError
	switch {
	case errors.As(err, &validation), errors.As(err, &unknown):
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case apperrors.IsContextError(err):
		s.writeErrorResponse(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.Error("request failed", err, logging.String("request_id", RequestID(r.Context())))
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding JSON response", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
