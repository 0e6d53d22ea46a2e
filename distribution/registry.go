package distribution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

// CloseResult reports the container that was closed.
type CloseResult struct {
	ContainerID int64  `json:"container_id"`
	Code        string `json:"code"`
	Destination string `json:"destination"`
	LineCount   int    `json:"line_count"`
}

// NextCode returns the code following last for prefix, zero-padding the
// counter to digits. An empty or unparsable last starts the sequence at 1.
func NextCode(prefix, last string, digits int) string {
	n, err := strconv.ParseInt(strings.TrimPrefix(last, prefix), 10, 64)
	if err != nil || last == "" {
		n = 0
	}
	return fmt.Sprintf("%s%0*d", prefix, digits, n+1)
}

func (s *Service) nextCode(tx *store.Tx, prefix string) (string, error) {
	last, err := tx.LastContainerCode(prefix, s.cfg.Digits)
	if err != nil {
		return "", fmt.Errorf("last container code: %w", err)
	}
	return NextCode(prefix, last, s.cfg.Digits), nil
}

// withCodeRetry runs attempt until it succeeds, fails with something other
// than a unique violation, or runs out of attempts. Attempt n waits
// backoff*n before the next one.
func (s *Service) withCodeRetry(ctx context.Context, what string, attempt func() error) error {
	var lastErr error
	for i := 1; i <= s.cfg.MaxAttempts; i++ {
		err := attempt()
		if err == nil {
			return nil
		}
		if !store.IsUniqueViolation(err) {
			return err
		}
		lastErr = err
		s.log.Debugf("distribution: %s code collision (attempt %d/%d): %v", what, i, s.cfg.MaxAttempts, err)
		if i == s.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RetryBackoff * time.Duration(i)):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", domain.ErrExhausted, what, s.cfg.MaxAttempts, lastErr)
}

// GetOrCreateOpen resolves the OPEN container for (manifest, destination),
// creating it with the next sequential code when none exists.
func (s *Service) GetOrCreateOpen(ctx context.Context, manifestID int64, destination, actor string) (int64, error) {
	if err := domain.RequireActor(actor); err != nil {
		return 0, err
	}
	var c *store.Container
	var created bool
	err := s.withCodeRetry(ctx, "open container", func() error {
		return s.db.WithTx(ctx, func(tx *store.Tx) error {
			var err error
			c, created, err = s.openContainer(tx, manifestID, destination, actor)
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	if created {
		s.logOpened(c)
	}
	return c.ID, nil
}

// openContainer finds the OPEN container for (manifest, destination) inside
// tx or inserts one. A concurrent insert of the same code or destination
// surfaces as a unique violation for withCodeRetry to absorb.
func (s *Service) openContainer(tx *store.Tx, manifestID int64, destination, actor string) (*store.Container, bool, error) {
	c, err := tx.FindOpenContainer(manifestID, destination)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("find open container: %w", err)
	}
	code, err := s.nextCode(tx, s.cfg.Prefix)
	if err != nil {
		return nil, false, err
	}
	c = &store.Container{
		Code:        code,
		ManifestID:  manifestID,
		Destination: destination,
		Status:      domain.ContainerOpen,
		Type:        domain.ContainerNormal,
		CreatedBy:   actor,
	}
	if err := tx.InsertContainer(c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (s *Service) logOpened(c *store.Container) {
	s.log.Infof("distribution: opened container %s for manifest %d destination %s", c.Code, c.ManifestID, c.Destination)
}

// IsEditable reports whether lines may still be added to the container.
func (s *Service) IsEditable(containerID int64) (bool, error) {
	c, err := s.db.GetContainer(containerID)
	if err != nil {
		return false, notFound(err, "container %d", containerID)
	}
	return c.Status == domain.ContainerOpen, nil
}

// Close seals an OPEN container that holds at least one line.
func (s *Service) Close(ctx context.Context, containerID int64, actor string) (*CloseResult, error) {
	if err := domain.RequireActor(actor); err != nil {
		return nil, err
	}
	var c *store.Container
	var lines int
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if c, err = tx.GetContainer(containerID); err != nil {
			return notFound(err, "container %d", containerID)
		}
		if c.Status != domain.ContainerOpen {
			return domain.Errorf(domain.ErrWrongState, "container %s is %s", c.Code, c.Status)
		}
		if lines, err = tx.CountContainerLines(containerID); err != nil {
			return err
		}
		if lines == 0 {
			return fmt.Errorf("%w: %s", domain.ErrEmpty, c.Code)
		}
		closed, err := tx.CloseContainer(containerID, actor)
		if err != nil {
			return err
		}
		if !closed {
			return domain.Errorf(domain.ErrWrongState, "container %s is no longer open", c.Code)
		}
		if c, err = tx.GetContainer(containerID); err != nil {
			return err
		}
		if err := tx.AppendAudit(&store.AuditEvent{
			Type: domain.EventClose, Destination: c.Destination, Actor: actor,
			Note: fmt.Sprintf("container %s closed with %d lines", c.Code, lines),
		}); err != nil {
			return err
		}
		return s.announcer.AnnounceContainerClosed(tx, c, lines)
	})
	if err != nil {
		return nil, err
	}
	s.emitter.EmitContainerClosed(c, lines, actor)
	return &CloseResult{ContainerID: c.ID, Code: c.Code, Destination: c.Destination, LineCount: lines}, nil
}

// MarkDispatched records that the external dispatch process shipped a CLOSED
// container. Dispatched containers accept no further edits or reversals.
func (s *Service) MarkDispatched(ctx context.Context, code, actor string) (*store.Container, error) {
	if err := domain.RequireActor(actor); err != nil {
		return nil, err
	}
	var c *store.Container
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if c, err = tx.GetContainerByCode(code); err != nil {
			return notFound(err, "container %s", code)
		}
		ok, err := tx.MarkContainerDispatched(c.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Errorf(domain.ErrWrongState, "container %s is %s", c.Code, c.Status)
		}
		if c, err = tx.GetContainer(c.ID); err != nil {
			return err
		}
		if err := tx.AppendAudit(&store.AuditEvent{
			Type: domain.EventDispatch, Destination: c.Destination, Actor: actor,
			Note: "container " + c.Code + " dispatched",
		}); err != nil {
			return err
		}
		return s.announcer.AnnounceContainerDispatched(tx, c)
	})
	if err != nil {
		return nil, err
	}
	s.emitter.EmitContainerDispatched(c)
	return c, nil
}
