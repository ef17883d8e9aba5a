// Package invoice は請求書フィードの閲覧機能を提供する。
package invoice

import (
	"encoding/base64"
	"encoding/json"

	"github.com/mtanaka/invoicer/internal/model"
)

// EncodeCursor はカーソルをbase64url(JSON)のワイヤ形式に変換する。
// クライアントには不透明なトークンとして扱わせる。
func EncodeCursor(cursor *model.InvoiceCursor) (string, error) {
	data, err := json.Marshal(cursor)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor はワイヤ形式のカーソルをパースする。
// 復号・パースに失敗した場合はINVALID_CURSORエラーを返す。
func DecodeCursor(raw string) (*model.InvoiceCursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, model.NewInvalidCursorError(raw)
	}

	var cursor model.InvoiceCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, model.NewInvalidCursorError(raw)
	}

	if cursor.ID == "" || cursor.CreatedAt.IsZero() {
		return nil, model.NewInvalidCursorError(raw)
	}

	return &cursor, nil
}
