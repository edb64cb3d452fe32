package autostart

import (
	"errors"
	"testing"

	"github.com/kardianos/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	service.Service

	status      service.Status
	statusErr   error
	installed   int
	uninstalled int
	stopped     int
}

func (f *fakeService) Install() error                  { f.installed++; return nil }
func (f *fakeService) Uninstall() error                { f.uninstalled++; return nil }
func (f *fakeService) Stop() error                     { f.stopped++; return nil }
func (f *fakeService) Status() (service.Status, error) { return f.status, f.statusErr }

func newFakeServiceRegistrar(fake *fakeService, seen *[]*service.Config) *ServiceRegistrar {
	r := NewServiceRegistrar("")
	r.newService = func(cfg *service.Config) (service.Service, error) {
		*seen = append(*seen, cfg)
		return fake, nil
	}
	return r
}

func TestServiceRegisterInstallsUserService(t *testing.T) {
	fake := &fakeService{}
	var seen []*service.Config
	r := newFakeServiceRegistrar(fake, &seen)

	require.NoError(t, r.Register("/usr/local/bin/mcversion"))

	assert.Equal(t, 1, fake.installed)
	require.Len(t, seen, 1)
	assert.Equal(t, DefaultName, seen[0].Name)
	assert.Equal(t, "/usr/local/bin/mcversion", seen[0].Executable)
	assert.Equal(t, true, seen[0].Option["UserService"])

	location, err := r.Location()
	require.NoError(t, err)
	assert.Equal(t, "service:mcversion", location)
}

func TestServiceUnregisterStopsRunningService(t *testing.T) {
	fake := &fakeService{status: service.StatusRunning}
	var seen []*service.Config
	r := newFakeServiceRegistrar(fake, &seen)

	require.NoError(t, r.Unregister())
	assert.Equal(t, 1, fake.stopped)
	assert.Equal(t, 1, fake.uninstalled)
}

func TestServiceUnregisterSkipsMissingService(t *testing.T) {
	fake := &fakeService{statusErr: service.ErrNotInstalled}
	var seen []*service.Config
	r := newFakeServiceRegistrar(fake, &seen)

	require.NoError(t, r.Unregister())
	assert.Zero(t, fake.uninstalled)
}

func TestServiceRegisterPropagatesCreateError(t *testing.T) {
	r := NewServiceRegistrar("")
	r.newService = func(*service.Config) (service.Service, error) {
		return nil, errors.New("no service manager")
	}

	require.Error(t, r.Register("/usr/local/bin/mcversion"))
	require.Error(t, r.Unregister())
}
