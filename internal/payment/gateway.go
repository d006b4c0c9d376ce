package payment

import (
	"context"
	"errors"
)

// ゲートウェイに到達できない/応答しない場合のエラー。
// 呼び出し側はリトライ可能として扱う（注文はPENDINGのまま残る）。
var ErrUnavailable = errors.New("payment gateway unavailable")

// 決済インテント作成時に渡す付帯情報
type Metadata struct {
	OrderID int64
	UserID  int64
}

// 作成されたインテント。GatewayRefが取引ID、ApproveURLがクライアント用ハンドル。
type Intent struct {
	GatewayRef string `json:"gateway_ref"`
	ApproveURL string `json:"approve_url"`
}

// キャプチャ結果。Paid=falseはゲートウェイが拒否したことを表す（エラーではない）。
type CaptureResult struct {
	Paid      bool
	RawStatus string
}

// 外部決済プロバイダの薄いラッパー。
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, meta Metadata) (Intent, error)
	ConfirmCapture(ctx context.Context, gatewayRef string) (CaptureResult, error)
}
