// 包 export 负责输出：将聚合结果写为 all.json，错误朋友写为 errors.json。
package export

import (
	"fmt"

	"go-friend-circle/internal/fileutil"
	"go-friend-circle/internal/model"
)

// Write 原子写入结果与错误列表；路径为空则跳过对应文件。
func Write(res model.Result, errs []model.Friend, dataPath, errorsPath string) error {
	if res.Articles == nil {
		res.Articles = []model.Article{}
	}
	if dataPath != "" {
		if err := fileutil.WriteJSON(dataPath, res); err != nil {
			return fmt.Errorf("export data: %w", err)
		}
	}
	if errorsPath != "" {
		rows := make([][]string, 0, len(errs))
		for _, f := range errs {
			rows = append(rows, f.Triple())
		}
		if err := fileutil.WriteJSON(errorsPath, rows); err != nil {
			return fmt.Errorf("export errors: %w", err)
		}
	}
	return nil
}
