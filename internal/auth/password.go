package auth

import "unicode"

// 強度チェック項目数と合格に必要な数。
// 8文字以上・大文字・小文字・数字・記号の5項目中4項目以上で合格。
const requiredPasswordChecks = 4

// IsStrongPassword はパスワード強度ポリシーを検証する。
func IsStrongPassword(password string) bool {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	passed := 0
	for _, ok := range []bool{len(password) >= 8, hasUpper, hasLower, hasDigit, hasSpecial} {
		if ok {
			passed++
		}
	}
	return passed >= requiredPasswordChecks
}
