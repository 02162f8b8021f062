package service

import (
	"bytes"
	"strings"
)

// EICAR 标准反病毒测试串，拆开拼接避免本文件自身被误报.
var eicarSignature = []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$` + `EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)

// 可执行文件魔数（文件开头）.
var executableMagics = [][]byte{
	{'M', 'Z'},               // PE
	{0x7f, 'E', 'L', 'F'},    // ELF
	{0xfe, 0xed, 0xfa, 0xce}, // Mach-O 32
	{0xfe, 0xed, 0xfa, 0xcf}, // Mach-O 64
	{0xcf, 0xfa, 0xed, 0xfe}, // Mach-O 64 (LE)
	{0xca, 0xfe, 0xba, 0xbe}, // Mach-O universal / Java class
}

// 安全容器内的脚本注入标记（SVG 里的 script 标签、图片尾部附加脚本等）.
var scriptMarkers = [][]byte{
	[]byte("<script"),
	[]byte("javascript:"),
	[]byte("onload="),
	[]byte("onerror="),
}

// PDF 内的活动内容标记.
var pdfActiveMarkers = [][]byte{
	[]byte("/JavaScript"),
	[]byte("/JS"),
	[]byte("/OpenAction"),
	[]byte("/Launch"),
	[]byte("/AA"),
}

// 嵌入 PE 的典型桩文本，可出现在任意偏移.
var dosStub = []byte("This program cannot be run in DOS mode")

// heuristicScan 对字节流做快速本地启发式检查.
// contentType 为校验阶段嗅探出的真实类型，决定容器相关的检查项.
// 命中即 fail closed：返回 false 与命中原因.
func heuristicScan(data []byte, contentType string) (clean bool, reason string) {
	if bytes.Contains(data, eicarSignature) {
		return false, "eicar test signature"
	}

	for _, magic := range executableMagics {
		if bytes.HasPrefix(data, magic) {
			return false, "executable header"
		}
	}

	if bytes.Contains(data, dosStub) {
		return false, "embedded executable payload"
	}

	// PDF 容器里的活动内容
	if strings.HasPrefix(contentType, "application/pdf") {
		for _, marker := range pdfActiveMarkers {
			if bytes.Contains(data, marker) {
				return false, "active content in pdf"
			}
		}
	}

	// 图片容器里的脚本注入（SVG 的 script 标签，或合法图片尾部附加的载荷）.
	// 标记检查在全文做，不只看头部.
	if strings.HasPrefix(contentType, "image/") {
		lower := bytes.ToLower(data)
		for _, marker := range scriptMarkers {
			if bytes.Contains(lower, marker) {
				return false, "script payload in container"
			}
		}
	}

	return true, ""
}
