package libvirt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoCellCaps = `<capabilities>
  <host>
    <uuid>4c4c4544-0044-3010-8051-b4c04f4e3732</uuid>
    <topology>
      <cells num='2'>
        <cell id='1'>
          <memory unit='KiB'>196608000</memory>
          <cpus num='2'>
            <cpu id='1' socket_id='1' core_id='0' siblings='1'/>
            <cpu id='3' socket_id='1' core_id='1' siblings='3'/>
          </cpus>
        </cell>
        <cell id='0'>
          <memory unit='KiB'>196608000</memory>
          <cpus num='2'>
            <cpu id='0' socket_id='0' core_id='0' siblings='0'/>
            <cpu id='2' socket_id='0' core_id='1' siblings='2'/>
          </cpus>
        </cell>
      </cells>
    </topology>
  </host>
</capabilities>`

func TestParseCapabilities(t *testing.T) {
	host, err := ParseCapabilities(twoCellCaps)
	require.NoError(t, err)
	assert.Equal(t, HostTopology{NumaNodes: []uint{0, 1}, Sockets: 2}, host)
}

func TestParseCapabilities_SocketSpansCells(t *testing.T) {
	host, err := ParseCapabilities(`<capabilities><host><topology><cells num='2'>
<cell id='0'><cpus num='1'><cpu id='0' socket_id='0'/></cpus></cell>
<cell id='1'><cpus num='1'><cpu id='1' socket_id='0'/></cpus></cell>
</cells></topology></host></capabilities>`)
	require.NoError(t, err)
	assert.Equal(t, []uint{0, 1}, host.NumaNodes)
	assert.Equal(t, uint(1), host.Sockets)
}

func TestParseCapabilities_NoTopology(t *testing.T) {
	host, err := ParseCapabilities(`<capabilities><host/></capabilities>`)
	require.NoError(t, err)
	assert.Empty(t, host.NumaNodes)
	assert.Zero(t, host.Sockets)
}

func TestParseCapabilities_Errors(t *testing.T) {
	_, err := ParseCapabilities(`<capabilities><host>`)
	require.Error(t, err)

	_, err = ParseCapabilities(`<capabilities><host><topology><cells>
<cell id='0'/><cell id='0'/></cells></topology></host></capabilities>`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")
}

func TestParseURI(t *testing.T) {
	for raw, exp := range map[string]string{
		"":                         "qemu:///system",
		"qemu+tcp://node1/system":  "qemu+tcp://node1/system",
		"no-scheme":                "qemu:///system",
	} {
		u, err := ParseURI(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, exp, u.String(), raw)
	}
}
