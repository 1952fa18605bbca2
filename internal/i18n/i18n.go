// Package i18n localizes the text the client shows: notification messages and
// role labels. Messages are registered with x/text/message at init.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DoyleJ11/hidden-role-client/internal/session"
)

type Key string

const (
	MsgEncrypting       Key = "create.encrypting"
	MsgSubmitting       Key = "create.submitting"
	MsgConfirming       Key = "create.confirming"
	MsgCreated          Key = "create.done"
	MsgChecking         Key = "verify.checking"
	MsgDecrypting       Key = "verify.decrypting"
	MsgVerifying        Key = "verify.submitting"
	MsgVerified         Key = "verify.done"
	MsgAlreadyVerified  Key = "verify.already"
	MsgNotConnected     Key = "error.not_connected"
	MsgInitFailed       Key = "error.init_failed"
	MsgUserRejected     Key = "error.user_rejected"
	MsgStoreUnavailable Key = "error.store_unavailable"
	MsgNotFound         Key = "error.not_found"
	MsgCreateFailed     Key = "error.create_failed"
	MsgVerifyFailed     Key = "error.verify_failed"
	MsgInvalidForm      Key = "error.invalid_form"
	MsgAvailable        Key = "store.available"
	MsgProbeFailed      Key = "error.probe_failed"

	StatusVerified   Key = "status.verified"
	StatusUnverified Key = "status.unverified"
)

var roleKeys = map[session.Role]Key{
	session.RoleUnknown:  "role.unknown",
	session.RoleVillager: "role.villager",
	session.RoleWerewolf: "role.werewolf",
	session.RoleSeer:     "role.seer",
	session.RoleWitch:    "role.witch",
	session.RoleHunter:   "role.hunter",
}

var catalog = map[language.Tag]map[Key]string{
	language.English: {
		MsgEncrypting:       "Creating game with encryption...",
		MsgSubmitting:       "Submitting transaction...",
		MsgConfirming:       "Waiting for transaction confirmation...",
		MsgCreated:          "Game created!",
		MsgChecking:         "Checking verification status...",
		MsgDecrypting:       "Decrypting role...",
		MsgVerifying:        "Verifying decryption on chain...",
		MsgVerified:         "Decryption verified!",
		MsgAlreadyVerified:  "Data already verified on chain",
		MsgNotConnected:     "Please connect your wallet first",
		MsgInitFailed:       "Encryption engine failed to initialize",
		MsgUserRejected:     "Transaction cancelled by user",
		MsgStoreUnavailable: "Failed to load data",
		MsgNotFound:         "Game not found",
		MsgCreateFailed:     "Submission failed: %s",
		MsgVerifyFailed:     "Decryption failed: %s",
		MsgInvalidForm:      "Invalid game settings: %s",
		MsgAvailable:        "Store is available",
		MsgProbeFailed:      "Call failed: %s",
		StatusVerified:      "Verified",
		StatusUnverified:    "Pending verification",
		"role.unknown":      "Unknown",
		"role.villager":     "Villager",
		"role.werewolf":     "Werewolf",
		"role.seer":         "Seer",
		"role.witch":        "Witch",
		"role.hunter":       "Hunter",
	},
	language.Chinese: {
		MsgEncrypting:       "使用FHE创建游戏中...",
		MsgSubmitting:       "提交交易中...",
		MsgConfirming:       "等待交易确认...",
		MsgCreated:          "游戏创建成功!",
		MsgChecking:         "检查验证状态...",
		MsgDecrypting:       "解密角色中...",
		MsgVerifying:        "在链上验证解密...",
		MsgVerified:         "数据解密验证成功!",
		MsgAlreadyVerified:  "数据已在链上验证",
		MsgNotConnected:     "请先连接钱包",
		MsgInitFailed:       "加密引擎初始化失败",
		MsgUserRejected:     "用户取消交易",
		MsgStoreUnavailable: "加载数据失败",
		MsgNotFound:         "游戏不存在",
		MsgCreateFailed:     "提交失败: %s",
		MsgVerifyFailed:     "解密失败: %s",
		MsgInvalidForm:      "游戏设置无效: %s",
		MsgAvailable:        "isAvailable调用成功!",
		MsgProbeFailed:      "调用失败: %s",
		StatusVerified:      "已验证",
		StatusUnverified:    "待验证",
		"role.unknown":      "未知",
		"role.villager":     "村民",
		"role.werewolf":     "狼人",
		"role.seer":         "预言家",
		"role.witch":        "女巫",
		"role.hunter":       "猎人",
	},
}

var supported = []language.Tag{language.English, language.Chinese}

var matcher = language.NewMatcher(supported)

func init() {
	for tag, msgs := range catalog {
		for key, text := range msgs {
			if err := message.SetString(tag, string(key), text); err != nil {
				panic(err)
			}
		}
	}
}

// Localizer renders messages in one language.
type Localizer struct {
	tag language.Tag
	p   *message.Printer
}

// New picks the supported language closest to lang, falling back to English.
func New(lang string) *Localizer {
	tag := language.English
	if lang = strings.TrimSpace(lang); lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Localizer{tag: tag, p: message.NewPrinter(tag)}
}

func (l *Localizer) Lang() string { return l.tag.String() }

func (l *Localizer) Text(key Key, args ...any) string {
	return l.p.Sprintf(string(key), args...)
}

func (l *Localizer) Role(r session.Role) string {
	key, ok := roleKeys[r]
	if !ok {
		key = roleKeys[session.RoleUnknown]
	}
	return l.Text(key)
}

func (l *Localizer) Status(verified bool) string {
	if verified {
		return l.Text(StatusVerified)
	}
	return l.Text(StatusUnverified)
}
