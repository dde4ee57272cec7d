// Package post は投稿の保存・取得を担うpostサービスの内部実装を提供する。
//
// 投稿はSQLiteに挿入順で保存され、所有者ごとのページ指定一覧・
// 所有者確認付き削除をサポートする。外部へはpkg/rpcベースの
// RPCインターフェース（pkg/postrpcで定義）として公開される。
package post
