package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/flanksource/transmute/api"
	"github.com/google/uuid"
)

// Invoke runs one conversion through the engine behind h:
// write input, execute, read output, then remove both files.
//
// Identifiers are namespaced per call so concurrent invocations against the
// same engine never share storage. Cleanup runs on every exit path and its
// failures are logged, never returned.
func Invoke(ctx context.Context, h *Handle, src []byte, srcExt, dstExt string) ([]byte, error) {
	id := uuid.NewString()
	input := identifier("input", id, srcExt)
	output := identifier("output", id, dstExt)

	s := newScope(h, input, output)
	defer s.release(ctx)

	if err := s.write(ctx, input, src); err != nil {
		return nil, failure(api.CodeWriteFailed, "write "+input, err)
	}

	if err := h.Execute(ctx, Args(input, output)); err != nil {
		if errors.Is(err, api.ErrEngineNotReady) {
			return nil, err
		}
		var d Diagnoser
		diagnostic := ""
		if errors.As(err, &d) {
			diagnostic = d.Diagnostic()
		}
		return nil, api.ConversionFailed("convert "+input+" to "+output, diagnostic, err)
	}
	s.adopt(output)

	data, err := h.ReadFile(ctx, output)
	if err != nil {
		return nil, failure(api.CodeReadFailed, "read "+output, err)
	}
	return data, nil
}

// Args builds the engine command line for converting input into output.
func Args(input, output string) []string {
	return []string{"-i", input, output}
}

func identifier(role, id, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return role + "-" + id
	}
	return role + "-" + id + "." + ext
}

func failure(code api.Code, op string, err error) error {
	if errors.Is(err, api.ErrEngineNotReady) {
		return err
	}
	return api.NewError(code, op, err)
}

// scope owns the storage identifiers of one invocation and guarantees they
// are released however the invocation ends.
type scope struct {
	h       *Handle
	ids     []string
	tracked map[string]bool
}

func newScope(h *Handle, ids ...string) *scope {
	return &scope{h: h, ids: ids, tracked: map[string]bool{}}
}

func (s *scope) write(ctx context.Context, id string, data []byte) error {
	if err := s.h.WriteFile(ctx, id, data); err != nil {
		return err
	}
	s.tracked[id] = true
	return nil
}

func (s *scope) adopt(id string) {
	s.tracked[id] = s.h.track(id)
}

func (s *scope) release(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	log := s.h.m.log
	for _, id := range s.ids {
		err := s.h.RemoveFile(ctx, id)
		switch {
		case err == nil:
		case errors.Is(err, api.ErrEngineNotReady):
			// Shutdown drains whatever was still tracked.
			log.Debugf("skipping removal of %s: %v", id, err)
		case s.tracked[id]:
			log.Warnf("removing %s: %v", id, err)
		default:
			log.Debugf("removing untracked %s: %v", id, err)
		}
	}
}
