package cli

import (
	"context"
	"errors"
	"os"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"
)

// program 适配 service.Interface：Start 不阻塞，Stop 取消并等待退出。
type program struct {
	run    func(ctx context.Context) error
	exit   func(code int)
	cancel context.CancelFunc
	done   chan error
}

func newProgram(run func(ctx context.Context) error) *program {
	return &program{run: run, exit: os.Exit}
}

func (p *program) Start(s service.Service) error {
	log.Info("starting service")
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		err := p.run(ctx)
		if err != nil && ctx.Err() == nil {
			log.Errorf("watcher stopped: %v", err)
			p.exit(1)
		}
		p.done <- err
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	log.Info("stopping service")
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	if err := <-p.done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
