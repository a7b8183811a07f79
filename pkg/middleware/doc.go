// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// アクセストークン（JWT）の検証とロールによる認可、アクセスログ、
// パニックリカバリ、CORS設定を含む。トークン検証はライブチャネルの
// 接続受付からも ParseToken として利用する。
package middleware
