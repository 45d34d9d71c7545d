package resp

import (
	"bytes"
	"strconv"
)

// Encode serializes v into its wire representation.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeInto(&buf, v)
	return buf.Bytes()
}

func encodeInto(buf *bytes.Buffer, v Value) {
	switch v.Type {
	case SimpleString:
		buf.WriteByte(byte(SimpleString))
		buf.WriteString(v.Str)
		buf.WriteString("\r\n")
	case Error:
		buf.WriteByte(byte(Error))
		buf.WriteString(v.Str)
		buf.WriteString("\r\n")
	case Integer:
		buf.WriteByte(byte(Integer))
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		buf.WriteString("\r\n")
	case BulkType:
		buf.WriteByte(byte(BulkType))
		if v.IsNull {
			buf.WriteString("-1\r\n")
			return
		}
		buf.WriteString(strconv.Itoa(len(v.Bulk)))
		buf.WriteString("\r\n")
		buf.Write(v.Bulk)
		buf.WriteString("\r\n")
	case Array:
		buf.WriteByte(byte(Array))
		if v.IsNull {
			buf.WriteString("-1\r\n")
			return
		}
		buf.WriteString(strconv.Itoa(len(v.Items)))
		buf.WriteString("\r\n")
		for _, item := range v.Items {
			encodeInto(buf, item)
		}
	case MultiFrame:
		// No envelope: each item is its own independent top-level reply.
		for _, item := range v.Items {
			encodeInto(buf, item)
		}
	default:
		// Unreachable for values constructed through this package's
		// constructors; fall back to a generic error rather than emit
		// garbage on the wire.
		encodeInto(buf, Err("ERR internal: unencodable reply"))
	}
}
