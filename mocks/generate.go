package mocks

//go:generate mockgen -destination=./mock_fetcher.go -package=mocks github.com/rxtech-lab/argo-dsl/pkg/marketdata Fetcher
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-dsl/pkg/marketdata/provider Provider
//go:generate mockgen -destination=./mock_publisher.go -package=mocks github.com/rxtech-lab/argo-dsl/internal/queue Publisher
