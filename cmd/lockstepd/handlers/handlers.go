/*
Package handlers provides the HTTP surface of the lockstepd daemon.

Every mutating endpoint reads the caller identity from the X-Lockstep-Caller
header as a hex encoded address. The daemon trusts this header. Verifying that
the caller really controls the address must happen in front of the daemon.

Owner set, threshold and metadata mutations are not exposed. They require an
execution authority and an authority cannot cross the wire. An account changes
its own configuration by queueing a transaction and executing it through a
harness that calls the privileged setters in process.
*/
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/cmd/lockstepd/metrics"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/x/msig"
)

// CallerHeader is the HTTP header carrying the hex address of the already
// authenticated caller.
const CallerHeader = "X-Lockstep-Caller"

// RegisterRoutes attaches all lockstepd endpoints to the given router. A nil
// harness is replaced with one that accepts every payload without doing
// anything.
func RegisterRoutes(rt *mux.Router, engine *msig.Engine, harness msig.Harness) {
	if harness == nil {
		harness = msig.HarnessFunc(func(ctx context.Context, auth msig.Authority, payload []byte) error {
			return nil
		})
	}

	rt.Handle("/info", &InfoHandler{ChainID: engine.ChainID()}).Methods("GET")
	rt.Handle("/accounts", &CreateAccountHandler{Engine: engine}).Methods("POST")
	rt.Handle("/accounts/migrate", &MigrateAccountHandler{Engine: engine}).Methods("POST")
	rt.Handle("/accounts/{address}", &AccountDetailHandler{Engine: engine}).Methods("GET")
	rt.Handle("/accounts/{address}/transactions", &PendingTransactionsHandler{Engine: engine}).Methods("GET")
	rt.Handle("/accounts/{address}/transactions", &CreateTransactionHandler{Engine: engine}).Methods("POST")
	rt.Handle("/accounts/{address}/transactions/{sequence}", &TransactionDetailHandler{Engine: engine}).Methods("GET")
	rt.Handle("/accounts/{address}/transactions/{sequence}/votes", &VoteHandler{Engine: engine}).Methods("POST")
	rt.Handle("/accounts/{address}/transactions/{sequence}/execute", &ExecuteHandler{Engine: engine, Harness: harness}).Methods("POST")
	rt.Handle("/accounts/{address}/transactions/{sequence}/execute-rejected", &ExecuteRejectedHandler{Engine: engine}).Methods("POST")

	rt.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSONErr(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})
	rt.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSONErr(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})
}

// InfoHandler reports the daemon build and the chain it serves.
type InfoHandler struct {
	ChainID string
}

func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	JSONResp(w, http.StatusOK, struct {
		BuildVersion string `json:"build_version"`
		ChainID      string `json:"chain_id"`
	}{
		BuildVersion: lockstep.Version(),
		ChainID:      h.ChainID,
	})
}

// CreateAccountHandler provisions a new multi owner account for the caller.
type CreateAccountHandler struct {
	Engine *msig.Engine
}

func (h *CreateAccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	creator, err := callerAddress(r)
	if err != nil {
		JSONErr(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req struct {
		Nonce     uint64             `json:"nonce"`
		Owners    []lockstep.Address `json:"owners"`
		Threshold uint32             `json:"threshold"`
		Metadata  map[string][]byte  `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONErr(w, http.StatusBadRequest, "cannot decode JSON body: "+err.Error())
		return
	}
	addr, err := h.Engine.CreateAccount(r.Context(), &msig.CreateAccountMsg{
		Creator:   creator,
		Nonce:     req.Nonce,
		Owners:    req.Owners,
		Threshold: req.Threshold,
		Metadata:  req.Metadata,
	})
	metrics.RecordOperation("create-account", err)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	JSONResp(w, http.StatusCreated, struct {
		Address lockstep.Address `json:"address"`
	}{
		Address: addr,
	})
}

// MigrateAccountHandler installs a multi owner configuration on an address
// that is vouched for by the signed attestation inside the request.
type MigrateAccountHandler struct {
	Engine *msig.Engine
}

func (h *MigrateAccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg msig.MigrateAccountMsg
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		JSONErr(w, http.StatusBadRequest, "cannot decode JSON body: "+err.Error())
		return
	}
	err := h.Engine.MigrateAccount(r.Context(), &msg)
	metrics.RecordOperation("migrate-account", err)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	JSONResp(w, http.StatusCreated, struct {
		Address lockstep.Address `json:"address"`
	}{
		Address: msg.Address,
	})
}

// AccountDetailHandler returns the full state of a single account.
type AccountDetailHandler struct {
	Engine *msig.Engine
}

func (h *AccountDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addr, err := varAddress(r)
	if err != nil {
		JSONErr(w, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := h.Engine.GetAccount(addr)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	JSONResp(w, http.StatusOK, acct)
}

// PendingTransactionsHandler lists the unresolved transactions of an account
// ordered by sequence number.
type PendingTransactionsHandler struct {
	Engine *msig.Engine
}

func (h *PendingTransactionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addr, err := varAddress(r)
	if err != nil {
		JSONErr(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := h.Engine.GetPendingTransactions(addr)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Transactions []*msig.Transaction `json:"transactions"`
	}{
		Transactions: txs,
	})
}

// CreateTransactionHandler queues a new transaction proposed by the caller.
// The request carries either the full payload or only its digest.
type CreateTransactionHandler struct {
	Engine *msig.Engine
}

func (h *CreateTransactionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	creator, err := callerAddress(r)
	if err != nil {
		JSONErr(w, http.StatusUnauthorized, err.Error())
		return
	}
	addr, err := varAddress(r)
	if err != nil {
		JSONErr(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Payload     []byte `json:"payload"`
		PayloadHash []byte `json:"payload_hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONErr(w, http.StatusBadRequest, "cannot decode JSON body: "+err.Error())
		return
	}
	if len(req.Payload) != 0 && len(req.PayloadHash) != 0 {
		JSONErr(w, http.StatusBadRequest, "pass either a payload or a payload hash, not both")
		return
	}

	var tx *msig.Transaction
	if len(req.PayloadHash) != 0 {
		tx, err = h.Engine.CreateTransactionWithHash(r.Context(), &msig.CreateTransactionWithHashMsg{
			Account:     addr,
			Creator:     creator,
			PayloadHash: req.PayloadHash,
		})
		metrics.RecordOperation("create-transaction-with-hash", err)
	} else {
		tx, err = h.Engine.CreateTransaction(r.Context(), &msig.CreateTransactionMsg{
			Account: addr,
			Creator: creator,
			Payload: req.Payload,
		})
		metrics.RecordOperation("create-transaction", err)
	}
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	JSONResp(w, http.StatusCreated, tx)
}

// TransactionDetailHandler returns a single pending transaction together with
// its vote tally and resolution readiness.
type TransactionDetailHandler struct {
	Engine *msig.Engine
}

func (h *TransactionDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addr, seq, err := varTransaction(r)
	if err != nil {
		JSONErr(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.Engine.GetTransaction(addr, seq)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	tally, err := h.Engine.VoteTally(addr, seq)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	canExecute, err := h.Engine.CanBeExecuted(addr, seq)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	canReject, err := h.Engine.CanBeRejected(addr, seq)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Transaction *msig.Transaction `json:"transaction"`
		Approvals   uint32            `json:"approvals"`
		Rejections  uint32            `json:"rejections"`
		CanExecute  bool              `json:"can_execute"`
		CanReject   bool              `json:"can_reject"`
	}{
		Transaction: tx,
		Approvals:   tally.Approvals,
		Rejections:  tally.Rejections,
		CanExecute:  canExecute,
		CanReject:   canReject,
	})
}

// VoteHandler casts or replaces the caller vote on a pending transaction.
type VoteHandler struct {
	Engine *msig.Engine
}

func (h *VoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, err := callerAddress(r)
	if err != nil {
		JSONErr(w, http.StatusUnauthorized, err.Error())
		return
	}
	addr, seq, err := varTransaction(r)
	if err != nil {
		JSONErr(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Approve bool `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONErr(w, http.StatusBadRequest, "cannot decode JSON body: "+err.Error())
		return
	}
	err = h.Engine.Vote(r.Context(), &msig.VoteMsg{
		Account:  addr,
		Owner:    owner,
		Sequence: seq,
		Approve:  req.Approve,
	})
	metrics.RecordOperation("vote", err)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Account  lockstep.Address `json:"account"`
		Owner    lockstep.Address `json:"owner"`
		Sequence msig.Seq         `json:"sequence"`
		Approve  bool             `json:"approve"`
	}{
		Account:  addr,
		Owner:    owner,
		Sequence: seq,
		Approve:  req.Approve,
	})
}

// ExecuteHandler runs the full execution cycle for a pending transaction. The
// transaction payload is handed to the configured harness and the transaction
// is resolved with the harness outcome. A harness failure still responds with
// 200 because the transaction was resolved, the failure is reported in the
// response body.
type ExecuteHandler struct {
	Engine  *msig.Engine
	Harness msig.Harness
}

func (h *ExecuteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	executor, err := callerAddress(r)
	if err != nil {
		JSONErr(w, http.StatusUnauthorized, err.Error())
		return
	}
	addr, seq, err := varTransaction(r)
	if err != nil {
		JSONErr(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Payload []byte `json:"payload"`
	}
	// The body is optional. Transactions storing the full payload need none.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		JSONErr(w, http.StatusBadRequest, "cannot decode JSON body: "+err.Error())
		return
	}

	var harnessErr error
	recording := msig.HarnessFunc(func(ctx context.Context, auth msig.Authority, payload []byte) error {
		harnessErr = h.Harness.Execute(ctx, auth, payload)
		return harnessErr
	})
	err = h.Engine.Execute(r.Context(), &msig.ExecuteMsg{
		Account:  addr,
		Executor: executor,
		Sequence: seq,
		Payload:  req.Payload,
	}, recording)
	metrics.RecordOperation("execute", err)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}

	resp := struct {
		Sequence msig.Seq             `json:"sequence"`
		Executed bool                 `json:"executed"`
		Error    *msig.ExecutionError `json:"error,omitempty"`
	}{
		Sequence: seq,
		Executed: harnessErr == nil,
	}
	if harnessErr != nil {
		execErr := msig.AsExecutionError(harnessErr)
		resp.Error = &execErr
	}
	JSONResp(w, http.StatusOK, resp)
}

// ExecuteRejectedHandler removes a sufficiently rejected transaction from the
// queue without running it.
type ExecuteRejectedHandler struct {
	Engine *msig.Engine
}

func (h *ExecuteRejectedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	executor, err := callerAddress(r)
	if err != nil {
		JSONErr(w, http.StatusUnauthorized, err.Error())
		return
	}
	addr, seq, err := varTransaction(r)
	if err != nil {
		JSONErr(w, http.StatusBadRequest, err.Error())
		return
	}
	err = h.Engine.ExecuteRejected(r.Context(), &msig.ExecuteRejectedMsg{
		Account:  addr,
		Executor: executor,
		Sequence: seq,
	})
	metrics.RecordOperation("execute-rejected", err)
	if err != nil {
		JSONEngineErr(w, err)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Account  lockstep.Address `json:"account"`
		Sequence msig.Seq         `json:"sequence"`
		Rejected bool             `json:"rejected"`
	}{
		Account:  addr,
		Sequence: seq,
		Rejected: true,
	})
}

// WithLogging attaches the logger to every request context and writes one log
// line per served request.
func WithLogging(logger log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := lockstep.WithLogger(r.Context(), logger)
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// callerAddress returns the address that authenticated this request.
func callerAddress(r *http.Request) (lockstep.Address, error) {
	raw := r.Header.Get(CallerHeader)
	if raw == "" {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "missing %s header", CallerHeader)
	}
	addr, err := lockstep.ParseAddress(raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "malformed %s header", CallerHeader)
	}
	return addr, nil
}

func varAddress(r *http.Request) (lockstep.Address, error) {
	return lockstep.ParseAddress(mux.Vars(r)["address"])
}

func varTransaction(r *http.Request) (lockstep.Address, msig.Seq, error) {
	addr, err := varAddress(r)
	if err != nil {
		return nil, 0, err
	}
	n, err := strconv.ParseUint(mux.Vars(r)["sequence"], 10, 64)
	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrInput, "sequence must be a number")
	}
	return addr, msig.Seq(n), nil
}

// JSONResp write content as JSON encoded response.
func JSONResp(w http.ResponseWriter, code int, content interface{}) {
	b, err := json.MarshalIndent(content, "", "\t")
	if err != nil {
		code = http.StatusInternalServerError
		b = []byte(`{"errors":["Internal Server Error"]}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// JSONErr write a single error as JSON encoded response.
func JSONErr(w http.ResponseWriter, code int, errText string) {
	resp := struct {
		Errors []string `json:"errors"`
	}{
		Errors: []string{errText},
	}
	JSONResp(w, code, resp)
}

// JSONEngineErr write an engine error as JSON encoded response, with the HTTP
// status matching the error kind and the engine error code in the payload.
func JSONEngineErr(w http.ResponseWriter, err error) {
	resp := struct {
		Errors []string `json:"errors"`
		Code   uint32   `json:"code"`
	}{
		Errors: []string{err.Error()},
		Code:   errors.Code(err),
	}
	JSONResp(w, errStatus(err), resp)
}

// errStatus maps an engine error to the closest HTTP status code.
func errStatus(err error) int {
	switch {
	case errors.ErrNotFound.Is(err):
		return http.StatusNotFound
	case errors.ErrUnauthorized.Is(err), msig.ErrNotOwner.Is(err), msig.ErrAuthority.Is(err):
		return http.StatusForbidden
	case errors.ErrDuplicate.Is(err), errors.ErrImmutable.Is(err):
		return http.StatusConflict
	case msig.ErrSequence.Is(err), msig.ErrQueueFull.Is(err), msig.ErrQuorum.Is(err), errors.ErrState.Is(err):
		return http.StatusConflict
	case msig.ErrPayloadMismatch.Is(err), errors.ErrMsg.Is(err), errors.ErrModel.Is(err), errors.ErrEmpty.Is(err), errors.ErrInput.Is(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
