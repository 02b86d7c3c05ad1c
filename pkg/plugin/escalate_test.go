package plugin_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/plugrpc/plugrpc/pkg/endpoint"
	"github.com/plugrpc/plugrpc/pkg/plugin"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	plugin.SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { plugin.SetLogger(zerolog.New(io.Discard)) })
	return &buf
}

// parseAddress is a representative escalation call site: it propagates any
// parse failure as the unified error type.
func parseAddress(raw string) (endpoint.Endpoint, error) {
	ep, err := plugin.Escalate(endpoint.Parse(raw))
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	return ep, nil
}

// registerService is a representative RPC-facing call site: it propagates
// failures as wire-level statuses.
func registerService(err error) error {
	if err := plugin.EscalateStatusErr(err); err != nil {
		return err
	}
	return nil
}

func TestEscalateSuccessYieldsValueWithoutLogging(t *testing.T) {
	buf := captureLogs(t)

	ep, err := parseAddress("127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, "tcp", ep.Network)
	assert.Equal(t, "127.0.0.1:8080", ep.Address)
	assert.Empty(t, buf.String())
}

func TestEscalateAddressParseLogsOnceAndConverts(t *testing.T) {
	buf := captureLogs(t)

	_, err := parseAddress("999.999.999.999:80")
	require.Error(t, err)

	var pe *plugin.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, plugin.KindAddressParse, pe.Kind())

	logged := buf.String()
	assert.Equal(t, 1, strings.Count(logged, "\n"), "expected exactly one log line: %q", logged)
	assert.Contains(t, logged, "parseAddress")
	assert.Contains(t, logged, "escalate_test.go")
	assert.Contains(t, logged, "AddressParse")
}

func TestEscalateLogLineFormat(t *testing.T) {
	buf := captureLogs(t)

	_, err := parseAddress("999.999.999.999:80")
	require.Error(t, err)

	assert.Regexp(t,
		`plugin_test\.parseAddress,\(.+escalate_test\.go:\d+\), AddressParse\(address 999\.999\.999\.999: invalid IP address\)`,
		buf.String())
}

func TestEscalateConvertsViaFromErr(t *testing.T) {
	captureLogs(t)

	failure := errors.New("disk on fire")
	v, err := plugin.Escalate(41, failure)
	require.Error(t, err)
	assert.Zero(t, v)

	var pe *plugin.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, plugin.KindGeneric, pe.Kind())
	assert.Equal(t, "disk on fire", pe.Error())
}

func TestEscalateStatusChannelSendScenario(t *testing.T) {
	buf := captureLogs(t)

	err := registerService(plugin.ChannelSend[endpoint.Endpoint]())
	require.Error(t, err)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unknown, st.Code())
	assert.Contains(t, st.Message(), "mpsc")
	assert.Contains(t, st.Message(), "Endpoint")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "registerService")
}

func TestEscalateStatusSuccessIsSilent(t *testing.T) {
	buf := captureLogs(t)

	v, err := plugin.EscalateStatus("ok", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	require.NoError(t, registerService(nil))
	assert.Empty(t, buf.String())
}

func TestEscalateErrPropagatesUnifiedError(t *testing.T) {
	buf := captureLogs(t)

	orig := plugin.NoPortAvailable()
	err := plugin.EscalateErr(orig)
	require.ErrorIs(t, err, orig)
	assert.Contains(t, buf.String(), "NoPortAvailable")
}

func TestFuncNameNamesEnclosingFunction(t *testing.T) {
	name := plugin.FuncName()
	assert.Contains(t, name, "TestFuncNameNamesEnclosingFunction")
}
