package setup

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/oplink/internal/form"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

type fakeGateway struct {
	saves       []map[string]any
	saveErr     error
	appPassword string
}

func (g *fakeGateway) SaveAdminConfig(_ context.Context, values map[string]any) (*nextcloud.SaveResult, error) {
	if g.saveErr != nil {
		return nil, g.saveErr
	}
	g.saves = append(g.saves, values)
	return &nextcloud.SaveResult{Status: true, OPUserAppPassword: g.appPassword}, nil
}

func (g *fakeGateway) ValidateOPInstance(context.Context, string) (*nextcloud.ValidationResult, error) {
	return &nextcloud.ValidationResult{Valid: true}, nil
}

var healthy = nextcloud.AppState{Enabled: true, Supported: true}

func newTestModel(gw *fakeGateway, cfg *nextcloud.AdminConfig) (Model, *wizard.Controller) {
	logger := loggy.NewNoopLogger()
	wc := wizard.NewController(wizard.DefaultSteps(), logger)
	wc.Load(cfg)
	return NewModel(context.Background(), gw, wc, cfg, logger), wc
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

// runSave executes the background save command and feeds its result back
func runSave(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	done, ok := msg.(saveDoneMsg)
	require.True(t, ok, "expected saveDoneMsg, got %T", msg)
	m, _ = send(t, m, done)
	return m
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keySave  = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_FreshInstallStartsAtHost(t *testing.T) {
	m, _ := newTestModel(&fakeGateway{}, &nextcloud.AdminConfig{})

	assert.Equal(t, 0, m.cursor)
	assert.Len(t, m.steps(), 5, "all steps are listed until a method is chosen")
	assert.Contains(t, m.View(), "OpenProject server")
	assert.False(t, m.Done())
}

func TestModel_DisabledStepCannotBeEdited(t *testing.T) {
	m, _ := newTestModel(&fakeGateway{}, &nextcloud.AdminConfig{})

	m, _ = send(t, m, keyDown)
	m, _ = send(t, m, keyEnter)

	assert.False(t, m.editing)
	assert.Contains(t, m.notice, "not available")
}

func TestModel_SaveHostAdvancesToNextStep(t *testing.T) {
	gw := &fakeGateway{}
	m, wc := newTestModel(gw, &nextcloud.AdminConfig{})

	m, _ = send(t, m, keyEnter)
	require.True(t, m.editing)

	m, _ = send(t, m, runes("https://op.example.com/"))
	m, cmd := send(t, m, keySave)
	assert.True(t, m.saving)

	m = runSave(t, m, cmd)

	assert.False(t, m.saving)
	assert.False(t, m.editing)
	require.Len(t, gw.saves, 1)
	assert.Equal(t, "https://op.example.com", gw.saves[0][nextcloud.KeyOpenProjectURL])

	g, err := wc.StepGatingState(wizard.StepHost)
	require.NoError(t, err)
	assert.True(t, g.Complete)
	assert.Equal(t, 1, m.cursor, "focus moves to the authentication method")
}

func TestModel_SaveFailureStaysInEdit(t *testing.T) {
	gw := &fakeGateway{saveErr: errors.New("connection reset")}
	m, _ := newTestModel(gw, &nextcloud.AdminConfig{})

	m, _ = send(t, m, keyEnter)
	m, _ = send(t, m, runes("https://op.example.com"))
	m, cmd := send(t, m, keySave)
	m = runSave(t, m, cmd)

	assert.True(t, m.editing)
	assert.Contains(t, m.View(), form.MsgSaveFailed)
	assert.NotContains(t, m.View(), "connection reset")
}

func TestModel_AuthMethodSwitchAsksForConfirmation(t *testing.T) {
	gw := &fakeGateway{}
	cfg := &nextcloud.AdminConfig{
		OpenProjectURL:      "https://op.example.com",
		AuthorizationMethod: wizard.MethodOAuth2,
		Apps:                map[string]nextcloud.AppState{nextcloud.AppUserOIDC: healthy},
	}
	m, wc := newTestModel(gw, cfg)
	require.Equal(t, 2, m.cursor, "first open step is the OAuth client")

	m, _ = send(t, m, keyUp)
	m, _ = send(t, m, keyEnter)
	require.True(t, m.editing)
	m, _ = send(t, m, keyRight)

	m, cmd := send(t, m, keySave)
	assert.Nil(t, cmd)
	require.True(t, m.confirming)
	assert.Contains(t, m.View(), "Switching the authentication method")

	m, _ = send(t, m, runes("n"))
	assert.False(t, m.confirming)
	assert.Empty(t, gw.saves, "declining sends nothing")
	assert.True(t, m.editing)

	m, _ = send(t, m, keySave)
	require.True(t, m.confirming)
	m, cmd = send(t, m, runes("y"))
	m = runSave(t, m, cmd)

	require.Len(t, gw.saves, 1)
	assert.Equal(t, wizard.MethodOIDC, gw.saves[0][nextcloud.KeyAuthorizationMethod])
	assert.Equal(t, wizard.MethodOIDC, wc.Method())
	assert.False(t, m.editing)
}

func TestModel_ProjectFolderShowsAppPasswordAndSummary(t *testing.T) {
	gw := &fakeGateway{appPassword: "pw-1234"}
	cfg := &nextcloud.AdminConfig{
		OpenProjectURL:          "https://op.example.com",
		AuthorizationMethod:     wizard.MethodOAuth2,
		OpenProjectClientID:     "client",
		OpenProjectClientSecret: "secret",
		Apps:                    map[string]nextcloud.AppState{nextcloud.AppGroupFolders: healthy},
	}
	m, wc := newTestModel(gw, cfg)
	require.Equal(t, 3, m.cursor)

	m, _ = send(t, m, keyEnter)
	m, _ = send(t, m, keyRight)
	m, _ = send(t, m, keyRight)
	m, cmd := send(t, m, keyEnter)
	m = runSave(t, m, cmd)

	require.Len(t, gw.saves, 1)
	assert.Equal(t, true, gw.saves[0][nextcloud.KeySetupProjectFolder])
	assert.True(t, wc.Done())

	view := m.View()
	assert.Contains(t, view, "pw-1234")
	assert.Contains(t, view, "Setup complete")

	var copied string
	m.writeClipboard = func(s string) error {
		copied = s
		return nil
	}
	m, _ = send(t, m, runes("c"))
	assert.Equal(t, "pw-1234", copied)
	assert.Contains(t, m.notice, "copied")
}

func TestModel_CycleOptionSkipsDisabled(t *testing.T) {
	m, _ := newTestModel(&fakeGateway{}, &nextcloud.AdminConfig{
		OpenProjectURL:      "https://op.example.com",
		AuthorizationMethod: wizard.MethodOAuth2,
		OpenProjectClientID: "client",
	})

	m.cursor = 3
	m, _ = send(t, m, keyEnter)
	require.True(t, m.editing)

	m, _ = send(t, m, keyRight)
	f, ok := m.currentField()
	require.True(t, ok)
	assert.Equal(t, string(form.FolderSetupOff), f.get())

	m, _ = send(t, m, keyRight)
	assert.Equal(t, string(form.FolderSetupOff), f.get(), "on needs the group folders app")
}

func TestModel_AuthMethodShowsUserOIDCDependencyError(t *testing.T) {
	m, _ := newTestModel(&fakeGateway{}, &nextcloud.AdminConfig{
		OpenProjectURL: "https://op.example.com",
		Apps: map[string]nextcloud.AppState{
			nextcloud.AppUserOIDC: {Enabled: false, Supported: true},
		},
	})

	assert.Contains(t, m.View(), "The user_oidc app is not enabled")
}

func TestModel_AuthMethodHidesDependencyErrorWithoutHost(t *testing.T) {
	m, _ := newTestModel(&fakeGateway{}, &nextcloud.AdminConfig{
		Apps: map[string]nextcloud.AppState{
			nextcloud.AppUserOIDC: {Enabled: false, Supported: true},
		},
	})

	assert.NotContains(t, m.View(), "The user_oidc app is not enabled")
}
