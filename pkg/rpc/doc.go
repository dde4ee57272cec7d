// Package rpc はサービス間の軽量なRPC通信フレームワークを提供する。
//
// HTTP APIとは別系統の、TCP上の長さプレフィックス付きフレームで
// リクエスト/レスポンスを交換するバイナリプロトコルを実装する。
// メソッド名で登録したハンドラにディスパッチするサーバーと、
// 呼び出しごとに接続を確立・解放するクライアントから構成される。
// gatewayサービスとpostサービスの間の通信に使用する。
package rpc
