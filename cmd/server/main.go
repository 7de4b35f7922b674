package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/app"
	"github.com/curecom/curecom/internal/app/handlers"
	"github.com/curecom/curecom/internal/auth/jwtmiddleware"
	"github.com/curecom/curecom/internal/config"
	"github.com/curecom/curecom/internal/lib/logger"
	"github.com/curecom/curecom/internal/lib/logger/handlers/urllog"
	"github.com/curecom/curecom/internal/payment/paypal"
	"github.com/curecom/curecom/internal/payment/telebirr"
	"github.com/curecom/curecom/internal/service"
	"github.com/curecom/curecom/internal/session"
	"github.com/curecom/curecom/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	shippingCost, err := decimal.NewFromString(cfg.Shop.ShippingCost)
	if err != nil {
		log.Error("invalid shipping cost", slog.Any("error", err))
		panic(errors.Wrap(err, "invalid shipping cost"))
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	couponRepo := storage.NewCouponRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	paymentRepo := storage.NewPaymentRepository(application.DB)
	listingRepo := storage.NewListingRepository(application.DB)
	newsletterRepo := storage.NewNewsletterRepository(application.DB)

	telebirrClient := telebirr.New(application.Logger, telebirr.Config{
		APIURL:    cfg.Payments.Telebirr.APIURL,
		AppID:     cfg.Payments.Telebirr.AppID,
		AppKey:    cfg.Payments.Telebirr.AppKey,
		ShortCode: cfg.Payments.Telebirr.ShortCode,
		NotifyURL: cfg.Payments.Telebirr.NotifyURL,
		ReturnURL: cfg.Payments.Telebirr.ReturnURL,
		Timeout:   cfg.Payments.Timeout,
	})
	paypalClient := paypal.New(application.Logger, paypal.Config{
		BaseURL:   cfg.Payments.PayPal.BaseURL,
		ClientID:  cfg.Payments.PayPal.ClientID,
		Secret:    cfg.Payments.PayPal.Secret,
		Currency:  cfg.Payments.PayPal.Currency,
		ReturnURL: cfg.Payments.PayPal.ReturnURL,
		CancelURL: cfg.Payments.PayPal.CancelURL,
		Timeout:   cfg.Payments.Timeout,
	})

	catalogService := service.NewCatalogService(application.Logger, productRepo)
	cartService := service.NewCartService(application.Logger, cartRepo, productRepo)
	couponService := service.NewCouponService(application.Logger, couponRepo, cartRepo)
	checkoutService := service.NewCheckoutService(application.Logger, application.DB, cartRepo, orderRepo, shippingCost)
	paymentService := service.NewPaymentService(application.Logger, application.DB, orderRepo, paymentRepo, telebirrClient, paypalClient)
	orderService := service.NewOrderService(application.Logger, orderRepo)
	listingService := service.NewListingService(application.Logger, listingRepo)
	newsletterService := service.NewNewsletterService(application.Logger, newsletterRepo)

	sessionStore := session.NewStore(cfg.Session.Secret, cfg.Session.MaxAge)
	cartHandlers := handlers.NewCartHandlers(application.Logger, cartService, productRepo, sessionStore)

	// public catalog and newsletter
	router.Get("/api/products", handlers.ListProductsHandler(application.Logger, catalogService))
	router.Get("/api/products/{slug}", handlers.GetProductHandler(application.Logger, catalogService))
	router.Get("/api/categories", handlers.ListCategoriesHandler(application.Logger, catalogService))
	router.Post("/api/newsletter/subscribe", handlers.SubscribeHandler(application.Logger, newsletterService))

	// gateway callbacks carry no user identity
	router.Post("/api/payment/notify", handlers.PaymentNotifyHandler(application.Logger, paymentService))
	router.Get("/api/payment/return", handlers.PaymentReturnHandler(application.Logger, paymentService))

	// cart works for both signed-in and anonymous visitors
	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewOptionalJWTMiddleware())
		r.Get("/api/cart", cartHandlers.Get)
		r.Post("/api/cart/add/{productID}", cartHandlers.Add)
		r.Post("/api/cart/update/{itemID}", cartHandlers.Update)
		r.Post("/api/cart/remove/{itemID}", cartHandlers.Remove)
		r.Post("/api/cart/clear", cartHandlers.Clear)
	})

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware())
		r.Post("/api/coupon/apply", handlers.ApplyCouponHandler(application.Logger, couponService))
		r.Post("/api/checkout", handlers.CheckoutHandler(application.Logger, checkoutService, paymentService))
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderService))
		r.Get("/api/orders/{orderID}", handlers.GetOrderHandler(application.Logger, orderService))
		r.Post("/api/orders/{orderID}/pay", handlers.PayOrderHandler(application.Logger, paymentService))
		r.Post("/api/listings", handlers.CreateListingHandler(application.Logger, listingService))
		r.Get("/api/listings", handlers.ListMyListingsHandler(application.Logger, listingService))
		r.Put("/api/listings/{listingID}", handlers.UpdateListingHandler(application.Logger, listingService))
		r.Delete("/api/listings/{listingID}", handlers.DeleteListingHandler(application.Logger, listingService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
