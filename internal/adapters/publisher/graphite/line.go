package graphite

import (
	"strconv"

	"github.com/vshulcz/varnishgraphite/internal/domain"
)

// appendLine renders one sample in Graphite plaintext form:
//
//	<prefix>.<name> <value> <timestamp>\n
//
// Integral values render without a decimal point so counters stay readable.
func appendLine(dst []byte, prefix string, s domain.Sample) []byte {
	dst = append(dst, prefix...)
	dst = append(dst, '.')
	dst = append(dst, s.Name...)
	dst = append(dst, ' ')
	dst = strconv.AppendFloat(dst, s.Value, 'f', -1, 64)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, s.Timestamp, 10)
	dst = append(dst, '\n')
	return dst
}
