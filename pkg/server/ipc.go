package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/birdserve/internal/logger"
	"github.com/bastiangx/birdserve/internal/utils"
	"github.com/bastiangx/birdserve/pkg/session"
	"github.com/bastiangx/birdserve/pkg/typeahead"
)

// Options tune request handling for both transports.
type Options struct {
	// EnableFilter rejects lookup terms that cannot be transliteration keys.
	EnableFilter bool
	// MaxResults caps returned suggestions; zero keeps the index cap.
	MaxResults int
}

// Server handles msgpack IPC for one session
type Server struct {
	sess *session.Session
	opts Options
	dec  *msgpack.Decoder
	enc  *msgpack.Encoder
	log  *log.Logger
}

// NewServer creates a server reading requests from r and writing responses to w
func NewServer(sess *session.Session, r io.Reader, w io.Writer, opts Options) *Server {
	return &Server{
		sess: sess,
		opts: opts,
		dec:  msgpack.NewDecoder(r),
		enc:  msgpack.NewEncoder(w),
		log:  logger.New("ipc"),
	}
}

// Start answers requests until the input ends or ctx is done. A request that is not a
// msgpack map is answered with an error; a broken stream ends the loop.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting IPC server.")
	s.send(map[string]string{"status": "ready"})

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var raw msgpack.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Errorf("Reading request: %v", err)
			return fmt.Errorf("read request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.log.Warnf("Invalid request: %v", err)
			s.sendError("", "invalid msgpack request", 400)
			continue
		}
		s.handle(ctx, req)
	}
}

func (s *Server) handle(ctx context.Context, req Request) {
	start := time.Now()
	switch req.Action {
	case "load":
		report, err := s.sess.Load(ctx, req.URL, strings.NewReader(req.HTML))
		if err != nil {
			s.fail(req.ID, err)
			return
		}
		s.send(PageResponse{ID: req.ID, Report: report, TimeTaken: time.Since(start).Microseconds()})

	case "mutate":
		report, err := s.sess.Mutate(ctx, req.Selector, req.Fragment)
		if err != nil {
			s.fail(req.ID, err)
			return
		}
		s.send(PageResponse{ID: req.ID, Report: report, TimeTaken: time.Since(start).Microseconds()})

	case "render":
		out, err := s.sess.Render()
		if err != nil {
			s.fail(req.ID, err)
			return
		}
		s.send(RenderResponse{ID: req.ID, HTML: out})

	case "keystroke":
		claimed, results := s.sess.Keystroke(req.Text)
		s.sendSuggestions(req, claimed, results, start)

	case "query":
		if s.opts.EnableFilter && !utils.IsValidTerm(req.Term) {
			s.sendError(req.ID, fmt.Sprintf("invalid term %q", req.Term), 400)
			return
		}
		s.sendSuggestions(req, true, s.sess.Query(req.Term, req.Global), start)

	case "select":
		e, err := s.sess.Select(req.Index)
		if err != nil && e.CommonName == "" {
			s.fail(req.ID, err)
			return
		}
		if err != nil {
			s.log.Warn("jump failed", "entry", e.CommonName, "err", err)
		}
		s.send(SelectResponse{ID: req.ID, Selected: Suggestion{Name: e.CommonName, Code: e.Code, Latin: e.Latin, Rank: 1}})

	case "sync_seen":
		diff, err := s.sess.SyncSeen(ctx, strings.NewReader(req.HTML))
		if err != nil {
			s.fail(req.ID, err)
			return
		}
		s.send(SyncResponse{ID: req.ID, Diff: diff})

	case "stats":
		s.send(StatsResponse{ID: req.ID, Stats: s.sess.Stats()})

	default:
		s.sendError(req.ID, fmt.Sprintf("unknown action: %q", req.Action), 400)
	}
}

func (s *Server) sendSuggestions(req Request, claimed bool, results []typeahead.Entry, start time.Time) {
	limit := req.Limit
	if limit <= 0 || (s.opts.MaxResults > 0 && limit > s.opts.MaxResults) {
		limit = s.opts.MaxResults
	}
	suggestions := toSuggestions(results, limit)
	s.send(SuggestResponse{
		ID:          req.ID,
		Claimed:     claimed,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

// statusOf maps session errors to HTTP-like codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrNoTarget), errors.Is(err, typeahead.ErrNoSelection):
		return 404
	case errors.Is(err, session.ErrNotLoaded):
		return 409
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 503
	default:
		return 500
	}
}

func (s *Server) fail(id string, err error) {
	s.sendError(id, err.Error(), statusOf(err))
}

func (s *Server) send(response any) {
	if err := s.enc.Encode(response); err != nil {
		s.log.Errorf("Encoding response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
