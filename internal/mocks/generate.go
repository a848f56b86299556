package mocks

//go:generate go run go.uber.org/mock/mockgen -destination=mock_publisher.go -package=mocks github.com/ThreeDotsLabs/watermill/message Publisher
