package confgen

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daos-confgen/internal/model"
)

func TestParseAccessPoints(t *testing.T) {
	for name, tc := range map[string]struct {
		entries []string
		port    int
		exp     []string
		expErr  bool
	}{
		"host only":           {entries: []string{"wolf-a"}, exp: []string{"wolf-a"}},
		"host and port":       {entries: []string{"wolf-a:12345"}, exp: []string{"wolf-a:12345"}},
		"non-numeric port":    {entries: []string{"wolf-a:abcd"}, expErr: true},
		"port out of range":   {entries: []string{"wolf-a:65536"}, expErr: true},
		"negative port":       {entries: []string{"wolf-a:-1"}, expErr: true},
		"zero port":           {entries: []string{"wolf-a:0"}, exp: []string{"wolf-a:0"}},
		"max port":            {entries: []string{"wolf-a:65535"}, exp: []string{"wolf-a:65535"}},
		"empty host":          {entries: []string{":10001"}, expErr: true},
		"too many colons":     {entries: []string{"a:b:c"}, expErr: true},
		"empty entry":         {entries: []string{""}, expErr: true},
		"no entries":          {expErr: true},
		"duplicate":           {entries: []string{"wolf-a", "wolf-a"}, expErr: true},
		"ipv6 with port":      {entries: []string{"[fe80::1]:10001"}, exp: []string{"[fe80::1]:10001"}},
		"override added":      {entries: []string{"wolf-a", "wolf-b:1"}, port: 10002, exp: []string{"wolf-a:10002", "wolf-b:1"}},
		"override duplicates": {entries: []string{"wolf-a", "wolf-a:10002"}, port: 10002, expErr: true},
		"whitespace trimmed":  {entries: []string{" wolf-a "}, exp: []string{"wolf-a"}},
		"override too large":  {entries: []string{"wolf-a"}, port: 70000, expErr: true},
		"override negative":   {entries: []string{"wolf-a:10001"}, port: -1, expErr: true},
		"ipv6 bracketed":      {entries: []string{"[fe80::1]"}, exp: []string{"[fe80::1]"}},
		"ipv6 with override":  {entries: []string{"[fe80::1]"}, port: 10002, exp: []string{"[fe80::1]:10002"}},
		"ipv6 bare":           {entries: []string{"fe80::1"}, expErr: true},
		"empty brackets":      {entries: []string{"[]"}, expErr: true},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := ParseAccessPoints(tc.entries, tc.port)
			if tc.expErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAccessPoint), "unexpected error %v", err)
				var apErr *AccessPointError
				require.True(t, errors.As(err, &apErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, got)
		})
	}
}

func TestParseNetClass(t *testing.T) {
	for in, exp := range map[string]string{
		"":           model.NetClassAny,
		"any":        model.NetClassAny,
		"InfiniBand": model.NetClassInfiniband,
		"ib":         model.NetClassInfiniband,
		"ethernet":   model.NetClassEthernet,
	} {
		got, err := ParseNetClass(in)
		require.NoError(t, err, in)
		assert.Equal(t, exp, got, in)
	}

	_, err := ParseNetClass("token-ring")
	require.Error(t, err)
}

func TestRequest_Validate(t *testing.T) {
	for name, tc := range map[string]struct {
		req    Request
		expErr string
	}{
		"defaults":        {req: NewRequest("wolf-a")},
		"negative engine": {req: Request{NumEngines: -1}, expErr: "must not be negative"},
		"negative ssds":   {req: Request{MinSSDs: -2}, expErr: "must not be negative"},
		"bad class":       {req: Request{NetClass: "other"}, expErr: "unsupported network class"},
		"bad port":        {req: Request{AccessPointPort: 70000}, expErr: "port override out of range"},
	} {
		t.Run(name, func(t *testing.T) {
			err := tc.req.validate()
			if tc.expErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expErr)
		})
	}
}
