package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/payment"
	repo "marketplace/internal/repository"
)

// キャプチャ時の在庫再検証で足りなかったことを表す内部エラー。
// txをロールバックさせるためだけに使い、呼び出し側でREJECTED/PAIDに落とす。
var errStockExhausted = errors.New("stock exhausted after payment")

// CheckoutUsecase はカート→注文→決済キャプチャの一連を調整する。
// initiateでは在庫もカートも変更せず、スナップショットと注文作成だけを行う。
// 在庫減算とカートクリアはキャプチャ成功時に行う。
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	orders    repo.OrderRepository
	gateway   payment.Gateway
	currency  string
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	orders repo.OrderRepository,
	gateway payment.Gateway,
	currency string,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		addresses: addresses,
		orders:    orders,
		gateway:   gateway,
		currency:  currency,
	}
}

type InitiateCheckoutInput struct {
	AddressID int64
}

type InitiateCheckoutOutput struct {
	OrderID    int64  `json:"order_id"`
	TotalPrice int64  `json:"total_price"`
	GatewayRef string `json:"gateway_ref"`
	//クライアントが決済を完了するためのURL
	ApproveURL string `json:"approve_url"`
}

func (u *CheckoutUsecase) InitiateCheckout(ctx context.Context, userID int64, in InitiateCheckoutInput) (InitiateCheckoutOutput, error) {
	if userID <= 0 {
		return InitiateCheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return InitiateCheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}

	//address_idの存在確認＋所有チェック
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return InitiateCheckoutOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
		}
		return InitiateCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//所有チェック（他人の住所なら403）
	if addr.UserID != userID {
		return InitiateCheckoutOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	var orderID int64
	var total int64

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カート明細取得
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		//全明細を先に検証してからスナップショットを作る（all-or-nothing）。
		//ここでは在庫を減らさない。減算はキャプチャ成功時。
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		total = 0

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid product in cart")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid product in cart")
			}

			//在庫チェック。どれか1つでも足りなければ注文は作らない
			if p.Stock < ci.Quantity {
				return NewHTTPError(http.StatusBadRequest, "insufficient stock: "+p.Name)
			}

			//確定時点の実効価格（セール価格優先）でスナップショット
			price := p.EffectivePrice()
			now := time.Now()
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   price,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})

			total += price * ci.Quantity
		}

		// 注文作成（PENDING/PENDING）
		now := time.Now()
		orderID, err = r.Orders().Create(ctx, model.Order{
			UserID:        userID,
			AddressID:     in.AddressID,
			Status:        model.OrderStatusPending,
			PaymentStatus: model.PaymentStatusPending,
			TotalPrice:    total,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
	if err != nil {
		return InitiateCheckoutOutput{}, err
	}

	//決済インテント作成。失敗しても注文はPENDINGのまま残り、再initiateできる
	intent, err := u.gateway.CreateIntent(ctx, total, u.currency, payment.Metadata{
		OrderID: orderID,
		UserID:  userID,
	})
	if err != nil {
		if errors.Is(err, payment.ErrUnavailable) {
			return InitiateCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "payment gateway unavailable")
		}
		return InitiateCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "payment gateway error")
	}

	if err := u.orders.SetExternalPaymentID(ctx, orderID, intent.GatewayRef); err != nil {
		return InitiateCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return InitiateCheckoutOutput{
		OrderID:    orderID,
		TotalPrice: total,
		GatewayRef: intent.GatewayRef,
		ApproveURL: intent.ApproveURL,
	}, nil
}

type CapturePaymentInput struct {
	GatewayRef string
}

func (u *CheckoutUsecase) CapturePayment(ctx context.Context, userID int64, orderID int64, in CapturePaymentInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if o.UserID != userID {
		//他人の注文は「存在しない扱い」にする
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	//終端ステータスなら何もせず現状を返す。
	//タイムアウト後のクライアント再送で二重処理しないための冪等ガード。
	if o.Status != model.OrderStatusPending {
		return u.loadOrderOutput(ctx, orderID)
	}

	//ゲートウェイ参照の突き合わせ
	ref := in.GatewayRef
	if ref == "" {
		ref = o.ExternalPaymentID
	}
	if ref == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "missing gateway_ref")
	}
	if o.ExternalPaymentID != "" && ref != o.ExternalPaymentID {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "gateway_ref mismatch")
	}

	//キャプチャ実行
	res, err := u.gateway.ConfirmCapture(ctx, ref)
	if err != nil {
		//到達できない場合は注文をPENDINGのまま残す。リトライ可能
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "payment gateway unavailable")
	}
	if !res.Paid {
		//拒否。注文はPENDINGのまま、カートも温存してリトライに備える
		if err := u.orders.UpdateStatuses(ctx, orderID, model.OrderStatusPending, model.PaymentStatusFailed); err != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "payment not captured")
	}

	//支払いは成立した。在庫を再検証しつつ減算する。
	//initiate〜captureの間に他の注文が在庫を使い切っている可能性がある
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		for _, it := range items {
			//足りるときだけ減らす条件付きUPDATE。先に減算できた注文が勝つ
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				//途中まで減らした分はロールバックで戻る
				return errStockExhausted
			}
		}

		if err := r.Orders().UpdateStatuses(ctx, orderID, model.OrderStatusConfirmed, model.PaymentStatusPaid); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カートをCHECKED_OUTにして明細をクリア
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == nil {
			if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.Carts().Clear(ctx, cart.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})

	if errors.Is(err, errStockExhausted) {
		//入金済みだが在庫を確保できなかった。REJECTED/PAIDで残して返金対応に回す。
		//自動での返金はしない
		if uerr := u.orders.UpdateStatuses(ctx, orderID, model.OrderStatusRejected, model.PaymentStatusPaid); uerr != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return u.loadOrderOutput(ctx, orderID)
	}
	if err != nil {
		return OrderOutput{}, err
	}

	return u.loadOrderOutput(ctx, orderID)
}

// 注文＋明細を読み直してOutputにする
func (u *CheckoutUsecase) loadOrderOutput(ctx context.Context, orderID int64) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}
