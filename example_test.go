package inframed_test

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/inframed/inframed"
)

func ExampleConvert() {
	ctx := context.Background()
	rep, err := inframed.Convert(ctx, "convert.cfg",
		inframed.WithLogger(inframed.NewTextLogger(slog.LevelInfo)),
		inframed.WithMetricsCollector(&inframed.BasicMetricsCollector{}),
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(rep.Written, "patients written")
}

func ExampleOpenRepository() {
	ctx := context.Background()
	repo, err := inframed.OpenRepository(ctx, "out/rep.repository", inframed.WithCache(64<<20))
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	rec, err := repo.PidRec(ctx, 1000001)
	if err != nil {
		log.Fatal(err)
	}
	for _, sid := range rec.Signals() {
		name, _ := repo.Catalog().Name(sid)
		fmt.Println(name, rec.Len(sid))
	}
}
