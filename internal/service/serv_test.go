package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
	"github.com/curecom/curecom/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeProductRepo struct {
	products map[int64]*models.Product
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[int64]*models.Product)}
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, storage.ErrProductNotFound
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductRepo) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return []*models.Category{}, nil
}

func (f *fakeProductRepo) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return nil, storage.ErrCategoryNotFound
}

func (f *fakeProductRepo) GetImagesByProductID(ctx context.Context, productID int64) ([]*models.ProductImage, error) {
	return []*models.ProductImage{}, nil
}

type fakeCartRepo struct {
	cart      *models.Cart
	cleared   bool
	couponSet *int64
	nextItem  int64
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo(userID int64) *fakeCartRepo {
	return &fakeCartRepo{
		cart:     &models.Cart{ID: 1, UserID: userID},
		nextItem: 1,
	}
}

func (f *fakeCartRepo) GetOrCreateCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	return f.cart, nil
}

func (f *fakeCartRepo) LockCartByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Cart, error) {
	return f.cart, nil
}

func (f *fakeCartRepo) GetItemByProductID(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	for _, item := range f.cart.Items {
		if item.ProductID == productID {
			return item, nil
		}
	}
	return nil, storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) CreateItem(ctx context.Context, cartID, productID int64, quantity int) error {
	f.cart.Items = append(f.cart.Items, &models.CartItem{
		ID:        f.nextItem,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	})
	f.nextItem++
	return nil
}

func (f *fakeCartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error {
	for _, item := range f.cart.Items {
		if item.ID == itemID {
			item.Quantity = quantity
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) DeleteItem(ctx context.Context, cartID, itemID int64) error {
	for i, item := range f.cart.Items {
		if item.ID == itemID {
			f.cart.Items = append(f.cart.Items[:i], f.cart.Items[i+1:]...)
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) DeleteAllItems(ctx context.Context, cartID int64) error {
	f.cart.Items = nil
	return nil
}

func (f *fakeCartRepo) ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error {
	f.cart.Items = nil
	f.cart.Coupon = nil
	f.cleared = true
	return nil
}

func (f *fakeCartRepo) SetCoupon(ctx context.Context, cartID int64, couponID *int64) error {
	f.couponSet = couponID
	return nil
}

type fakeCouponRepo struct {
	coupons map[string]*models.Coupon
}

var _ storage.CouponStorage = (*fakeCouponRepo)(nil)

func (f *fakeCouponRepo) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, storage.ErrCouponNotFound
	}
	return c, nil
}

type fakeOrderRepo struct {
	orders map[int64]*models.Order
	nextID int64
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*models.Order), nextID: 1}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	id := f.nextID
	f.nextID++
	stored := *order
	stored.ID = id
	f.orders[id] = &stored
	return id, nil
}

func (f *fakeOrderRepo) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	order, ok := f.orders[item.OrderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	order.Items = append(order.Items, item)
	return nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, storage.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) MarkOrderPaidTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.Paid = true
	o.Status = status
	return nil
}

type fakePaymentRepo struct {
	payments map[string]*models.Payment
	nextID   int64
}

var _ storage.PaymentStorage = (*fakePaymentRepo)(nil)

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*models.Payment), nextID: 1}
}

func (f *fakePaymentRepo) UpsertPending(ctx context.Context, orderID int64, transactionID, provider string, amount decimal.Decimal) (*models.Payment, error) {
	if existing, ok := f.payments[transactionID]; ok {
		if existing.Status != models.PaymentStatusCompleted {
			existing.Amount = amount
			existing.Status = models.PaymentStatusPending
		}
		return existing, nil
	}
	p := &models.Payment{
		ID:            f.nextID,
		OrderID:       orderID,
		TransactionID: transactionID,
		Amount:        amount,
		Provider:      provider,
		Status:        models.PaymentStatusPending,
	}
	f.nextID++
	f.payments[transactionID] = p
	return p, nil
}

func (f *fakePaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	p, ok := f.payments[transactionID]
	if !ok {
		return nil, storage.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePaymentRepo) LockByTransactionIDTx(ctx context.Context, tx *sql.Tx, transactionID string) (*models.Payment, error) {
	return f.GetByTransactionID(ctx, transactionID)
}

func (f *fakePaymentRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, paymentID int64, status string) error {
	for _, p := range f.payments {
		if p.ID == paymentID {
			p.Status = status
			return nil
		}
	}
	return storage.ErrPaymentNotFound
}

type fakeProvider struct {
	name        string
	redirectURL string
	createErr   error
	verifyTo    string
	verifyErr   error
	verifyCalls int
}

var _ service.PaymentProvider = (*fakeProvider)(nil)

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CreatePayment(ctx context.Context, req service.PaymentRequest) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.redirectURL, nil
}

func (f *fakeProvider) VerifyPayment(ctx context.Context, transactionID string) (string, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.verifyTo, nil
}

func validCoupon(discount int) *models.Coupon {
	return &models.Coupon{
		ID:        7,
		Code:      "SAVE",
		Discount:  discount,
		ValidFrom: time.Now().Add(-time.Hour),
		ValidTo:   time.Now().Add(time.Hour),
		Active:    true,
	}
}

func TestCartService_AddItem_Success(t *testing.T) {
	products := newFakeProductRepo()
	products.products[10] = &models.Product{ID: 10, Name: "Aspirin", Price: dec("5.99"), Available: true}
	carts := newFakeCartRepo(1)

	svc := service.NewCartService(testLogger(), carts, products)

	cart, err := svc.AddItem(context.Background(), 1, 10, 2)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(10), cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartService_AddItem_Duplicate(t *testing.T) {
	products := newFakeProductRepo()
	products.products[10] = &models.Product{ID: 10, Name: "Aspirin", Price: dec("5.99"), Available: true}
	carts := newFakeCartRepo(1)

	svc := service.NewCartService(testLogger(), carts, products)

	_, err := svc.AddItem(context.Background(), 1, 10, 1)
	assert.NoError(t, err)

	_, err = svc.AddItem(context.Background(), 1, 10, 1)
	assert.ErrorIs(t, err, service.ErrAlreadyInCart)
	assert.Len(t, carts.cart.Items, 1, "Duplicate add must not create a second line")
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	svc := service.NewCartService(testLogger(), newFakeCartRepo(1), newFakeProductRepo())

	_, err := svc.AddItem(context.Background(), 1, 10, 0)
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)
}

func TestCartService_AddItem_UnavailableProduct(t *testing.T) {
	products := newFakeProductRepo()
	products.products[10] = &models.Product{ID: 10, Name: "Aspirin", Price: dec("5.99"), Available: false}

	svc := service.NewCartService(testLogger(), newFakeCartRepo(1), products)

	_, err := svc.AddItem(context.Background(), 1, 10, 1)
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
}

func TestCartService_UpdateItem_NotFound(t *testing.T) {
	svc := service.NewCartService(testLogger(), newFakeCartRepo(1), newFakeProductRepo())

	_, err := svc.UpdateItem(context.Background(), 1, 99, 3)
	assert.ErrorIs(t, err, storage.ErrCartItemNotFound)
}

func TestCouponService_Apply_Success(t *testing.T) {
	coupons := &fakeCouponRepo{coupons: map[string]*models.Coupon{"SAVE": validCoupon(10)}}
	carts := newFakeCartRepo(1)

	svc := service.NewCouponService(testLogger(), coupons, carts)

	cart, err := svc.Apply(context.Background(), 1, "SAVE")
	assert.NoError(t, err)
	assert.NotNil(t, cart.Coupon)
	assert.Equal(t, 10, cart.Coupon.Discount)
	if assert.NotNil(t, carts.couponSet) {
		assert.Equal(t, int64(7), *carts.couponSet)
	}
}

func TestCouponService_Apply_NotFound(t *testing.T) {
	coupons := &fakeCouponRepo{coupons: map[string]*models.Coupon{}}
	svc := service.NewCouponService(testLogger(), coupons, newFakeCartRepo(1))

	_, err := svc.Apply(context.Background(), 1, "NOPE")
	assert.ErrorIs(t, err, storage.ErrCouponNotFound)
}

func TestCouponService_Apply_Expired(t *testing.T) {
	expired := validCoupon(10)
	expired.ValidTo = time.Now().Add(-time.Minute)
	coupons := &fakeCouponRepo{coupons: map[string]*models.Coupon{"SAVE": expired}}
	carts := newFakeCartRepo(1)

	svc := service.NewCouponService(testLogger(), coupons, carts)

	_, err := svc.Apply(context.Background(), 1, "SAVE")
	assert.ErrorIs(t, err, service.ErrCouponExpired)
	assert.Nil(t, carts.couponSet, "Failed apply must leave the cart untouched")
}

func TestCouponService_Apply_Inactive(t *testing.T) {
	inactive := validCoupon(10)
	inactive.Active = false
	coupons := &fakeCouponRepo{coupons: map[string]*models.Coupon{"SAVE": inactive}}

	svc := service.NewCouponService(testLogger(), coupons, newFakeCartRepo(1))

	_, err := svc.Apply(context.Background(), 1, "SAVE")
	assert.ErrorIs(t, err, service.ErrCouponInactive)
}

func TestCouponService_Apply_OutOfRangeDiscount(t *testing.T) {
	broken := validCoupon(150)
	coupons := &fakeCouponRepo{coupons: map[string]*models.Coupon{"SAVE": broken}}

	svc := service.NewCouponService(testLogger(), coupons, newFakeCartRepo(1))

	_, err := svc.Apply(context.Background(), 1, "SAVE")
	assert.ErrorIs(t, err, service.ErrCouponInvalidDiscount)
}

func checkoutInput(method string) service.CheckoutInput {
	return service.CheckoutInput{
		FirstName:     "Abebe",
		LastName:      "Bikila",
		Email:         "abebe@example.com",
		Phone:         "+251911000000",
		Address:       "Bole Road 1",
		PostalCode:    "1000",
		City:          "Addis Ababa",
		Country:       "ET",
		PaymentMethod: method,
	}
}

func TestCheckoutService_EmptyCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	carts := newFakeCartRepo(1)
	svc := service.NewCheckoutService(testLogger(), db, carts, newFakeOrderRepo(), dec("10.00"))

	_, err = svc.Checkout(context.Background(), 1, checkoutInput(models.PaymentMethodTelebirr))
	assert.ErrorIs(t, err, service.ErrEmptyCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutService_UnknownPaymentMethod(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	svc := service.NewCheckoutService(testLogger(), db, newFakeCartRepo(1), newFakeOrderRepo(), dec("10.00"))

	_, err = svc.Checkout(context.Background(), 1, checkoutInput("bitcoin"))
	assert.ErrorIs(t, err, service.ErrInvalidPaymentMethod)
}

func TestCheckoutService_FreezesAmounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	carts := newFakeCartRepo(1)
	carts.cart.Coupon = validCoupon(10)
	carts.cart.Items = []*models.CartItem{
		{ID: 1, CartID: 1, ProductID: 10, Name: "Aspirin", Price: dec("49.99"), Quantity: 2},
	}
	orders := newFakeOrderRepo()

	svc := service.NewCheckoutService(testLogger(), db, carts, orders, dec("10.00"))

	order, err := svc.Checkout(context.Background(), 1, checkoutInput(models.PaymentMethodTelebirr))
	assert.NoError(t, err)

	assert.Equal(t, "99.98", order.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", order.Discount.StringFixed(2))
	assert.Equal(t, "10.00", order.ShippingCost.StringFixed(2))
	assert.Equal(t, "99.98", order.Total.StringFixed(2))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.False(t, order.Paid)

	// price-at-purchase snapshot
	if assert.Len(t, order.Items, 1) {
		assert.Equal(t, "49.99", order.Items[0].Price.StringFixed(2))
		assert.Equal(t, 2, order.Items[0].Quantity)
	}

	assert.True(t, carts.cleared, "Checkout must clear the cart in the same transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutService_CashMarkedPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	carts := newFakeCartRepo(1)
	carts.cart.Items = []*models.CartItem{
		{ID: 1, CartID: 1, ProductID: 10, Name: "Aspirin", Price: dec("5.00"), Quantity: 1},
	}
	orders := newFakeOrderRepo()

	svc := service.NewCheckoutService(testLogger(), db, carts, orders, dec("10.00"))

	order, err := svc.Checkout(context.Background(), 1, checkoutInput(models.PaymentMethodCash))
	assert.NoError(t, err)
	assert.True(t, order.Paid)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutService_DoubleSubmission(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	carts := newFakeCartRepo(1)
	carts.cart.Items = []*models.CartItem{
		{ID: 1, CartID: 1, ProductID: 10, Name: "Aspirin", Price: dec("5.00"), Quantity: 1},
	}
	orders := newFakeOrderRepo()

	svc := service.NewCheckoutService(testLogger(), db, carts, orders, dec("10.00"))

	_, err = svc.Checkout(context.Background(), 1, checkoutInput(models.PaymentMethodCash))
	assert.NoError(t, err)

	// the first checkout emptied the cart, so the replay creates nothing
	_, err = svc.Checkout(context.Background(), 1, checkoutInput(models.PaymentMethodCash))
	assert.ErrorIs(t, err, service.ErrEmptyCart)
	assert.Len(t, orders.orders, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func paidTestOrder(orders *fakeOrderRepo, userID int64, method string, paid bool) *models.Order {
	order := &models.Order{
		UserID:        userID,
		PaymentMethod: method,
		Total:         dec("109.98"),
		Status:        models.OrderStatusPending,
		Paid:          paid,
	}
	id, _ := orders.CreateOrderTx(context.Background(), nil, order)
	order.ID = id
	return orders.orders[id]
}

func TestPaymentService_Initiate_Success(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	orders := newFakeOrderRepo()
	order := paidTestOrder(orders, 1, models.PaymentMethodTelebirr, false)
	payments := newFakePaymentRepo()
	provider := &fakeProvider{name: models.PaymentMethodTelebirr, redirectURL: "https://pay.example/123"}

	svc := service.NewPaymentService(testLogger(), db, orders, payments, provider)

	url, err := svc.Initiate(context.Background(), 1, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, "https://pay.example/123", url)

	txnID := strconv.FormatInt(order.ID, 10)
	payment, err := payments.GetByTransactionID(context.Background(), txnID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "109.98", payment.Amount.StringFixed(2))
}

func TestPaymentService_Initiate_AlreadyPaid(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	orders := newFakeOrderRepo()
	order := paidTestOrder(orders, 1, models.PaymentMethodTelebirr, true)

	svc := service.NewPaymentService(testLogger(), db, orders, newFakePaymentRepo(),
		&fakeProvider{name: models.PaymentMethodTelebirr})

	_, err = svc.Initiate(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, service.ErrOrderAlreadyPaid)
}

func TestPaymentService_Initiate_ProviderFailure(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	orders := newFakeOrderRepo()
	order := paidTestOrder(orders, 1, models.PaymentMethodTelebirr, false)
	payments := newFakePaymentRepo()
	provider := &fakeProvider{name: models.PaymentMethodTelebirr, createErr: assert.AnError}

	svc := service.NewPaymentService(testLogger(), db, orders, payments, provider)

	_, err = svc.Initiate(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, service.ErrProviderFailure)

	// the local record survives as pending so the user can retry
	payment, getErr := payments.GetByTransactionID(context.Background(), strconv.FormatInt(order.ID, 10))
	assert.NoError(t, getErr)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
}

func TestPaymentService_Initiate_ReopensFailedPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	orders := newFakeOrderRepo()
	order := paidTestOrder(orders, 1, models.PaymentMethodTelebirr, false)
	payments := newFakePaymentRepo()
	txnID := strconv.FormatInt(order.ID, 10)

	provider := &fakeProvider{
		name:        models.PaymentMethodTelebirr,
		redirectURL: "https://pay.example/retry",
		verifyTo:    models.PaymentStatusFailed,
	}
	svc := service.NewPaymentService(testLogger(), db, orders, payments, provider)

	// first attempt fails at the gateway
	_, err = svc.Initiate(context.Background(), 1, order.ID)
	assert.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectCommit()
	got, err := svc.Verify(context.Background(), txnID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, got.Status)

	// re-initiation reopens the row so the retry can be reconciled
	url, err := svc.Initiate(context.Background(), 1, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, "https://pay.example/retry", url)
	payment, err := payments.GetByTransactionID(context.Background(), txnID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	// the retried payment succeeds and the order ends up paid
	provider.verifyTo = models.PaymentStatusCompleted
	mock.ExpectBegin()
	mock.ExpectCommit()
	got, err = svc.Verify(context.Background(), txnID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)
	assert.True(t, order.Paid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentService_Initiate_CompletedPaymentNotRetryable(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	orders := newFakeOrderRepo()
	order := paidTestOrder(orders, 1, models.PaymentMethodTelebirr, false)
	payments := newFakePaymentRepo()
	txnID := strconv.FormatInt(order.ID, 10)
	payment, _ := payments.UpsertPending(context.Background(), order.ID, txnID, models.PaymentMethodTelebirr, dec("109.98"))
	payment.Status = models.PaymentStatusCompleted

	provider := &fakeProvider{name: models.PaymentMethodTelebirr, redirectURL: "https://pay.example/123"}
	svc := service.NewPaymentService(testLogger(), db, orders, payments, provider)

	_, err = svc.Initiate(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, service.ErrOrderAlreadyPaid)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
}

func TestPaymentService_Verify_TerminalIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	orders := newFakeOrderRepo()
	order := paidTestOrder(orders, 1, models.PaymentMethodTelebirr, true)
	payments := newFakePaymentRepo()
	payment, _ := payments.UpsertPending(context.Background(), order.ID, "42", models.PaymentMethodTelebirr, dec("109.98"))
	payment.Status = models.PaymentStatusCompleted

	provider := &fakeProvider{name: models.PaymentMethodTelebirr, verifyTo: models.PaymentStatusFailed}
	svc := service.NewPaymentService(testLogger(), db, orders, payments, provider)

	got, err := svc.Verify(context.Background(), "42")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status, "Terminal status must never transition")
	assert.Zero(t, provider.verifyCalls, "Terminal payments must not be re-verified with the provider")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentService_Verify_CompletedMarksOrderPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	orders := newFakeOrderRepo()
	order := paidTestOrder(orders, 1, models.PaymentMethodTelebirr, false)
	payments := newFakePaymentRepo()
	txnID := strconv.FormatInt(order.ID, 10)
	payments.UpsertPending(context.Background(), order.ID, txnID, models.PaymentMethodTelebirr, dec("109.98"))

	provider := &fakeProvider{name: models.PaymentMethodTelebirr, verifyTo: models.PaymentStatusCompleted}
	svc := service.NewPaymentService(testLogger(), db, orders, payments, provider)

	got, err := svc.Verify(context.Background(), txnID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)
	assert.True(t, order.Paid)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentService_Verify_StillPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	orders := newFakeOrderRepo()
	order := paidTestOrder(orders, 1, models.PaymentMethodTelebirr, false)
	payments := newFakePaymentRepo()
	txnID := strconv.FormatInt(order.ID, 10)
	payments.UpsertPending(context.Background(), order.ID, txnID, models.PaymentMethodTelebirr, dec("109.98"))

	provider := &fakeProvider{name: models.PaymentMethodTelebirr, verifyTo: models.PaymentStatusPending}
	svc := service.NewPaymentService(testLogger(), db, orders, payments, provider)

	got, err := svc.Verify(context.Background(), txnID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, got.Status)
	assert.False(t, order.Paid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentService_Verify_UnknownTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := service.NewPaymentService(testLogger(), db, newFakeOrderRepo(), newFakePaymentRepo(),
		&fakeProvider{name: models.PaymentMethodTelebirr})

	_, err = svc.Verify(context.Background(), "no-such-txn")
	assert.ErrorIs(t, err, storage.ErrPaymentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewsletterService_DuplicateEmail(t *testing.T) {
	repo := &fakeNewsletterRepo{seen: map[string]bool{"a@b.com": true}}
	svc := service.NewNewsletterService(testLogger(), repo)

	_, err := svc.Subscribe(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, service.ErrAlreadySubscribed)
}

type fakeNewsletterRepo struct {
	seen map[string]bool
}

var _ storage.NewsletterStorage = (*fakeNewsletterRepo)(nil)

func (f *fakeNewsletterRepo) CreateSubscriber(ctx context.Context, email string) (*models.Subscriber, error) {
	if f.seen[email] {
		return nil, storage.ErrDuplicateEmail
	}
	f.seen[email] = true
	return &models.Subscriber{ID: 1, Email: email, IsActive: true}, nil
}
